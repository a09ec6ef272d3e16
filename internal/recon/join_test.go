package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSources() (tp, tx, acct *Table) {
	s := DefaultSchema()

	tp = NewTable("Lv_tpaccount", s.PlatformUser, s.PlatformAccountKey)
	tp.Append(Row{s.PlatformUser: "42.0", s.PlatformAccountKey: "A1"})
	tp.Append(Row{s.PlatformUser: "43", s.PlatformAccountKey: "A2"})

	tx = NewTable("Lv_monetarytransaction", s.TxUser, s.TxAccountKey, s.TxCase)
	tx.Append(Row{s.TxUser: "42", s.TxCase: "Deposit Approval"})
	tx.Append(Row{s.TxUser: "42.0", s.TxCase: "Withdrawal"})
	tx.Append(Row{s.TxUser: "99", s.TxCase: "Deposit Approval"})          // no platform match
	tx.Append(Row{s.TxUser: "43", s.TxAccountKey: "A9", s.TxCase: "Fee"}) // own key wins

	acct = NewTable("Account", "AccountID", "Name")
	acct.Append(Row{"AccountID": "A1", "Name": "Jane Doe"})
	acct.Append(Row{"AccountID": "A2", "Name": "Ken Adams"})
	acct.Append(Row{"AccountID": "A9", "Name": "Redundant Export"})
	return tp, tx, acct
}

func TestTransactionJoinGrainPreserved(t *testing.T) {
	tp, tx, acct := testSources()
	r := NewResolver(DefaultSchema(), zap.NewNop())

	joined, stats, err := r.TransactionJoin(tx, tp, acct)
	require.NoError(t, err)
	assert.Equal(t, tx.Len(), joined.Len(), "left joins must never drop or duplicate transaction rows")
	assert.Equal(t, tx.Len(), stats.TxRows)
}

func TestTransactionJoinResolvesAccounts(t *testing.T) {
	tp, tx, acct := testSources()
	r := NewResolver(DefaultSchema(), zap.NewNop())

	joined, stats, err := r.TransactionJoin(tx, tp, acct)
	require.NoError(t, err)

	// Row 0: user 42 normalized, joined via platform to A1.
	assert.Equal(t, "42", joined.Rows[0][ColUserID])
	assert.Equal(t, "A1", joined.Rows[0][ColAccountKey])
	assert.Equal(t, "Jane Doe", joined.Rows[0][AccountColumn("Name")])

	// Row 1: "42.0" normalizes to the same user.
	assert.Equal(t, "42", joined.Rows[1][ColUserID])
	assert.Equal(t, "A1", joined.Rows[1][ColAccountKey])

	// Row 2: unmatched user is retained with null account side.
	assert.Equal(t, "99", joined.Rows[2][ColUserID])
	assert.Nil(t, joined.Rows[2][ColAccountKey])
	assert.Nil(t, joined.Rows[2][AccountColumn("Name")])

	// Row 3: transaction's own account key beats the platform-joined A2.
	assert.Equal(t, "A9", joined.Rows[3][ColAccountKey])
	assert.Equal(t, "Redundant Export", joined.Rows[3][AccountColumn("Name")])

	assert.Equal(t, 3, stats.MatchedPlatform)
	assert.Equal(t, 3, stats.ResolvedAccountKey)
	assert.Equal(t, 3, stats.MatchedAccount)
}

func TestTransactionJoinCoalesceFallsBackToJoinedKey(t *testing.T) {
	s := DefaultSchema()
	tp := NewTable("tp", s.PlatformUser, s.PlatformAccountKey)
	tp.Append(Row{s.PlatformUser: "7", s.PlatformAccountKey: "A7"})

	tx := NewTable("tx", s.TxUser, s.TxAccountKey)
	tx.Append(Row{s.TxUser: "7"}) // own key null -> joined value used

	acct := NewTable("Account", "AccountID", "Name")
	acct.Append(Row{"AccountID": "A7", "Name": "Fallback"})

	joined, _, err := NewResolver(s, zap.NewNop()).TransactionJoin(tx, tp, acct)
	require.NoError(t, err)
	assert.Equal(t, "A7", joined.Rows[0][ColAccountKey])
	assert.Equal(t, "Fallback", joined.Rows[0][AccountColumn("Name")])
}

func TestTransactionJoinMissingPlatformColumnDegrades(t *testing.T) {
	s := DefaultSchema()
	tp := NewTable("tp", "unexpected")
	tp.Append(Row{"unexpected": "x"})

	tx := NewTable("tx", s.TxUser)
	tx.Append(Row{s.TxUser: "42"})

	acct := NewTable("Account", "AccountID")
	acct.Append(Row{"AccountID": "A1"})

	joined, stats, err := NewResolver(s, zap.NewNop()).TransactionJoin(tx, tp, acct)
	require.NoError(t, err)
	assert.True(t, stats.MissingPlatformUserColumn)
	assert.Equal(t, 0, stats.MatchedPlatform)
	assert.Equal(t, 1, joined.Len())
	assert.Nil(t, joined.Rows[0][ColAccountKey])
}

func TestTransactionJoinNoUsableKeyIsStructuralError(t *testing.T) {
	s := DefaultSchema()
	tp := NewTable("tp", s.PlatformUser)
	tx := NewTable("tx", "amount") // neither user id nor account key
	acct := NewTable("Account", "AccountID")

	_, _, err := NewResolver(s, zap.NewNop()).TransactionJoin(tx, tp, acct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable join key")
}

func TestTransactionJoinAccountKeyCaseVariant(t *testing.T) {
	s := DefaultSchema()
	tp := NewTable("tp", s.PlatformUser, s.PlatformAccountKey)
	tp.Append(Row{s.PlatformUser: "1", s.PlatformAccountKey: "A1"})

	tx := NewTable("tx", s.TxUser)
	tx.Append(Row{s.TxUser: "1"})

	// Header came through with different casing.
	acct := NewTable("Account", "accountid", "Name")
	acct.Append(Row{"accountid": "A1", "Name": "Case Variant"})

	joined, _, err := NewResolver(s, zap.NewNop()).TransactionJoin(tx, tp, acct)
	require.NoError(t, err)
	assert.Equal(t, "Case Variant", joined.Rows[0][AccountColumn("Name")])
}

func TestTransactionJoinMissingAccountColumnIsError(t *testing.T) {
	s := DefaultSchema()
	tp := NewTable("tp", s.PlatformUser)
	tx := NewTable("tx", s.TxUser)
	tx.Append(Row{s.TxUser: "1"})
	acct := NewTable("Account", "SomethingElse")

	_, _, err := NewResolver(s, zap.NewNop()).TransactionJoin(tx, tp, acct)
	require.Error(t, err)
}

func TestReferenceJoin(t *testing.T) {
	tp, _, acct := testSources()
	r := NewResolver(DefaultSchema(), zap.NewNop())

	ref, err := r.ReferenceJoin(tp, acct)
	require.NoError(t, err)
	require.Equal(t, tp.Len(), ref.Len())
	assert.Equal(t, "42", ref.Rows[0][ColUserID])
	assert.Equal(t, "Jane Doe", ref.Rows[0][AccountColumn("Name")])
	assert.Equal(t, "Ken Adams", ref.Rows[1][AccountColumn("Name")])
}

func TestLatestPerUser(t *testing.T) {
	s := DefaultSchema()
	tx := NewTable("tx", s.TxUser, "CreatedOn")
	tx.Append(Row{s.TxUser: "1", "CreatedOn": "2024-01-01 10:00:00"})
	tx.Append(Row{s.TxUser: "1", "CreatedOn": "2024-06-01 10:00:00"})
	tx.Append(Row{s.TxUser: "2", "CreatedOn": "2024-02-01 00:00:00"})
	tx.Append(Row{s.TxUser: "1", "CreatedOn": "2024-03-01 10:00:00"})

	latest := NewResolver(s, zap.NewNop()).LatestPerUser(tx)
	require.Equal(t, 2, latest.Len())
	assert.Equal(t, "2024-06-01 10:00:00", latest.Rows[0]["CreatedOn"])
	assert.Equal(t, "2024-02-01 00:00:00", latest.Rows[1]["CreatedOn"])
}

func TestLatestPerUserEpochMillis(t *testing.T) {
	s := DefaultSchema()
	tx := NewTable("tx", s.TxUser, "CreatedOn")
	tx.Append(Row{s.TxUser: "1", "CreatedOn": float64(1700000000000)})
	tx.Append(Row{s.TxUser: "1", "CreatedOn": float64(1800000000000)})
	tx.Append(Row{s.TxUser: "1", "CreatedOn": float64(1750000000000)})

	latest := NewResolver(s, zap.NewNop()).LatestPerUser(tx)
	require.Equal(t, 1, latest.Len())
	assert.Equal(t, float64(1800000000000), latest.Rows[0]["CreatedOn"])
}

func TestLatestPerUserNoTimestampKeepsLastSeen(t *testing.T) {
	s := DefaultSchema()
	tx := NewTable("tx", s.TxUser, "amount")
	tx.Append(Row{s.TxUser: "1", "amount": "first"})
	tx.Append(Row{s.TxUser: "1", "amount": "last"})

	latest := NewResolver(s, zap.NewNop()).LatestPerUser(tx)
	require.Equal(t, 1, latest.Len())
	assert.Equal(t, "last", latest.Rows[0]["amount"])
}
