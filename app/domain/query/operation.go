package query

import "strings"

type Operation string

const (
	OperationRead        Operation = "read"
	OperationInsert      Operation = "insert"
	OperationInsertGetID Operation = "insertGetId"
	OperationUpdate      Operation = "update"
	OperationDelete      Operation = "delete"
	OperationTruncate    Operation = "truncate"
)

func (o Operation) IsRead() bool {
	return o == OperationRead
}

// IsWrite reports whether the operation changes table contents and therefore invalidates.
func (o Operation) IsWrite() bool {
	switch o {
	case OperationInsert, OperationInsertGetID, OperationUpdate, OperationDelete, OperationTruncate:
		return true
	}
	return false
}

func (o Operation) Valid() bool {
	return o.IsRead() || o.IsWrite()
}

// OperationFromSQL classifies a raw statement by its leading keyword.
// Statements that neither read nor write table rows report false.
func OperationFromSQL(sql string) (Operation, bool) {
	fields := strings.Fields(strings.TrimLeft(sql, "( \t\r\n"))
	if len(fields) == 0 {
		return "", false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "VALUES", "TABLE":
		return OperationRead, true
	case "INSERT", "REPLACE", "MERGE", "UPSERT":
		return OperationInsert, true
	case "UPDATE":
		return OperationUpdate, true
	case "DELETE":
		return OperationDelete, true
	case "TRUNCATE":
		return OperationTruncate, true
	}
	return "", false
}
