package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func TestCommitmentKeyTreatsUnknownConsistently(t *testing.T) {
	t.Parallel()

	base := housing.Commitment{
		Type:              housing.CommitmentCOAHSettlement,
		SourceDocumentURL: "https://example.org/plan.pdf",
	}
	require.Equal(t, CommitmentKey(1, base), CommitmentKey(1, base))

	withUnits := base
	withUnits.TotalUnits = housing.IntPtr(0)
	require.NotEqual(t, CommitmentKey(1, base), CommitmentKey(1, withUnits), "zero units differ from unknown")

	require.NotEqual(t, CommitmentKey(1, base), CommitmentKey(2, base))

	empty := base
	empty.Type = ""
	unknown := base
	unknown.Type = housing.CommitmentUnknown
	require.Equal(t, CommitmentKey(1, empty), CommitmentKey(1, unknown))

	correction := base
	correction.SupersedesID = 7
	require.NotEqual(t, CommitmentKey(1, base), CommitmentKey(1, correction))

	// Fields outside the natural key do not change it.
	withDeveloper := base
	withDeveloper.Developer = "Prism Capital Partners"
	require.Equal(t, CommitmentKey(1, base), CommitmentKey(1, withDeveloper))
}

func TestValidateCommitment(t *testing.T) {
	t.Parallel()

	valid := housing.Commitment{
		Type:              housing.CommitmentCourtOrder,
		TotalUnits:        housing.IntPtr(100),
		LowIncomeUnits:    housing.IntPtr(50),
		SourceDocumentURL: "https://example.org/order.pdf",
	}
	require.NoError(t, ValidateCommitment(valid))

	missing := valid
	missing.SourceDocumentURL = ""
	require.ErrorIs(t, ValidateCommitment(missing), housing.ErrMissingProvenance)

	tooMany := valid
	tooMany.ModerateIncomeUnits = housing.IntPtr(101)
	require.Error(t, ValidateCommitment(tooMany))

	negative := valid
	negative.TotalUnits = housing.IntPtr(-1)
	require.Error(t, ValidateCommitment(negative))

	badType := valid
	badType.Type = "builders_remedy"
	require.Error(t, ValidateCommitment(badType))

	badDate := valid
	badDate.Deadline = housing.Date{Year: 2027, Month: 2, Day: 30}
	require.Error(t, ValidateCommitment(badDate))
}
