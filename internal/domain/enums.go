package domain

// Environment names a provider deployment the credit note is sent to.
type Environment string

const (
	EnvironmentTest       Environment = "pruebas"
	EnvironmentStaging    Environment = "habilitacion"
	EnvironmentProduction Environment = "produccion"
)

// Valid reports whether e is one of the known provider environments.
func (e Environment) Valid() bool {
	switch e {
	case EnvironmentTest, EnvironmentStaging, EnvironmentProduction:
		return true
	}
	return false
}

// ExportFormat is the serialization used for a session export.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatXML  ExportFormat = "xml"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

// ContentTypes maps export formats to their MIME types.
var ContentTypes = map[ExportFormat]string{
	ExportFormatJSON: "application/json",
	ExportFormatXML:  "application/xml",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatCSV:  "text/csv",
}

// SubmissionStatus records the outcome of a provider submission.
type SubmissionStatus string

const (
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	SubmissionStatusRejected SubmissionStatus = "rejected"
	SubmissionStatusFailed   SubmissionStatus = "failed"
)
