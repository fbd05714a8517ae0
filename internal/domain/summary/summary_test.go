package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

func positionRecon() *frame.Frame {
	return frame.New(
		[]string{"Account ID", "Security Type", "Units - Reconciled", "Market Value - Reconciled"},
		[][]any{
			{"A1", "Marketable", true, true},
			{"A1", "Marketable", false, true},
			{"A1", "Cashlike", true, false},
			{"A2", "Marketable", false, false},
		},
	)
}

func TestCountColumn(t *testing.T) {
	assert.Equal(t, "Positions", CountColumn(""))
	assert.Equal(t, "Any Breaks", CountColumn("all"))
	assert.Equal(t, "Units Breaks", CountColumn("units"))
	assert.Equal(t, "Market Value Breaks", CountColumn("Market Value"))
}

func TestSummarizeMetric(t *testing.T) {
	// Act
	positions, err := SummarizeMetric(positionRecon(), "", Options{})
	require.NoError(t, err)
	units, err := SummarizeMetric(positionRecon(), "Units", Options{})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"Account ID", "Security Type", "Positions"}, positions.Columns())
	assert.Equal(t, [][]any{
		{"A1", "Cashlike", 1.0},
		{"A1", "Marketable", 2.0},
		{"A2", "Cashlike", 0.0},
		{"A2", "Marketable", 1.0},
	}, positions.Rows())
	assert.Equal(t, []any{0.0, 1.0, 0.0, 1.0}, units.Column("Units Breaks"))
}

func TestSummarizeMetric_MissingColumn(t *testing.T) {
	_, err := SummarizeMetric(positionRecon(), "Price", Options{})

	assert.ErrorIs(t, err, recon.ErrMissingColumn)
}

func TestSummarize(t *testing.T) {
	out, err := Summarize(positionRecon(), Options{Metrics: []string{"Units", "Market Value"}})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Account ID", "Security Type", "Positions", "Units Breaks", "Market Value Breaks", "Any Breaks",
	}, out.Columns())
	assert.Equal(t, []any{"A1", "Marketable", 2.0, 1.0, 0.0, 1.0}, out.Rows()[1])
	assert.Equal(t, []any{"A1", "Cashlike", 1.0, 0.0, 1.0, 1.0}, out.Rows()[0])
}

func TestHierarchyAndRollups(t *testing.T) {
	// Arrange
	accounts := frame.New(
		[]string{"AccountCode", "AccountName", "CustodianName", "ClientCode", "Extra"},
		[][]any{
			{"A1", "Account 1", "RBC", "C1", "x"},
			{"A2", "Account 2", "TD", "C1", "y"},
			{"A3", "Account 3", "TD", "C9", "z"},
		},
	)
	clients := frame.New([]string{"ClientID", "HouseholdID"}, [][]any{{"C1", "H1"}})

	// Act
	hierarchy, err := Hierarchy(accounts, clients)
	require.NoError(t, err)
	sum, err := Summarize(positionRecon(), Options{Metrics: []string{"Units"}})
	require.NoError(t, err)
	attached, err := AttachHierarchy(sum, hierarchy)
	require.NoError(t, err)
	byAccount, err := ByAccount(attached)
	require.NoError(t, err)
	byClient, err := ByClient(attached)
	require.NoError(t, err)
	byHousehold, err := ByHousehold(attached)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"Account ID", "Account Name", "Custodian", "Client ID", "Household ID"}, hierarchy.Columns())
	assert.Equal(t, []any{"A3", "Account 3", "TD", nil, nil}, hierarchy.Rows()[2])

	assert.Equal(t, []string{
		"Account ID", "Account Name", "Custodian", "Client ID", "Household ID",
		"Security Type", "Positions", "Units Breaks", "Any Breaks",
	}, attached.Columns())

	assert.Equal(t, [][]any{
		{"A1", "Account 1", "RBC", "C1", "H1", 3.0, 1.0, 1.0},
		{"A2", "Account 2", "TD", "C1", "H1", 1.0, 1.0, 1.0},
	}, byAccount.Rows())
	assert.Equal(t, [][]any{{"C1", "H1", 4.0, 2.0, 2.0}}, byClient.Rows())
	assert.Equal(t, []string{"Household ID", "Positions", "Units Breaks", "Any Breaks"}, byHousehold.Columns())
	assert.Equal(t, [][]any{{"H1", 4.0, 2.0, 2.0}}, byHousehold.Rows())
}

func TestHierarchy_MissingColumns(t *testing.T) {
	_, err := Hierarchy(frame.Empty("AccountCode"), frame.Empty("ClientID", "HouseholdID"))

	assert.ErrorIs(t, err, frame.ErrUnknownColumn)
}
