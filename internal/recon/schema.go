package recon

// Schema declares, ahead of any join, which source column feeds each
// logical field. The CRM export renames columns between extracts, so every
// join key and filter column is named here once instead of being guessed
// from suffix collisions after the fact.
type Schema struct {
	// AccountKey is the CRM account identifier column on the account table.
	AccountKey string

	// PlatformUser is the trading-platform user id column on the platform
	// account table (numeric-as-float in exports).
	PlatformUser string

	// PlatformAccountKey links a platform account to a CRM account.
	PlatformAccountKey string

	// TxUser is the platform user id column on the transaction table.
	TxUser string

	// TxAccountKey is the transaction table's own, redundantly exported
	// CRM account link. Preferred over the joined value when populated.
	TxAccountKey string

	// TxCase is the transaction case classification column.
	TxCase string

	// TxTemp is the temp-status label column.
	TxTemp string

	// TxInfo is the embedded JSON attribute column holding plan details.
	TxInfo string

	// TxTimeCandidates are timestamp columns tried in order when collapsing
	// transactions to the latest per user.
	TxTimeCandidates []string
}

// DefaultSchema matches the column names of the Lv_tpaccount,
// Lv_monetarytransaction and Account exports.
func DefaultSchema() Schema {
	return Schema{
		AccountKey:         "AccountID",
		PlatformUser:       "Lv_name",
		PlatformAccountKey: "lv_accountid",
		TxUser:             "lv_tpaccountidName",
		TxAccountKey:       "lv_accountid",
		TxCase:             "lv_transactioncaseidName",
		TxTemp:             "Lv_TempName",
		TxInfo:             "lv_AdditionalInfo",
		TxTimeCandidates: []string{
			"Lv_ApprovedOn",
			"CreatedOn_y",
			"CreatedOn",
			"ModifiedOn_y",
			"ModifiedOn",
			"Time",
		},
	}
}

// Derived column names produced by the join. Account-sourced columns are
// carried with the acPrefix to keep the transaction grain collision-free.
const (
	ColUserID     = "TP_UserID"
	ColAccountKey = "AccountID"
	ColPlan       = "Plan"
	ColPlanSB     = "Plan_SB"
	ColBalance    = "Balance"
	ColEquity     = "Equity"
	ColOpenPnL    = "OpenPnL"

	acPrefix = "AC_"
)

// AccountColumn returns the joined-output column name for a CRM account
// source column.
func AccountColumn(source string) string {
	return acPrefix + source
}
