package shared

// Built-in role names.
const (
	RoleAdmin        = "ADMIN"
	RoleExpenseAdmin = "EXPENSE_ADMIN"
	RoleUser         = "USER"
)

// Permission strings. The colon-delimited form is the capability vocabulary
// granted to roles.
const (
	PermTaskCreate = "TASK:CREATE"
	PermTaskRead   = "TASK:READ"
	PermTaskUpdate = "TASK:UPDATE"
	PermTaskDelete = "TASK:DELETE"

	PermExpenseCreate  = "EXPENSE:CREATE"
	PermExpenseRead    = "EXPENSE:READ"
	PermExpenseUpdate  = "EXPENSE:UPDATE"
	PermExpenseDelete  = "EXPENSE:DELETE"
	PermExpenseApprove = "EXPENSE:APPROVE"

	PermDropdownManage = "DROPDOWN:MANAGE"
	PermUserManage     = "USER:MANAGE"
	PermReportView     = "REPORT:VIEW"
	PermImportRun      = "IMPORT:RUN"
)

// AllPermissions lists the complete permission vocabulary.
func AllPermissions() []string {
	return []string{
		PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete,
		PermExpenseCreate, PermExpenseRead, PermExpenseUpdate, PermExpenseDelete,
		PermExpenseApprove,
		PermDropdownManage, PermUserManage, PermReportView, PermImportRun,
	}
}
