package mongo

const (
	store    = "transcription"
	jobTable = "job"
)

var indexData = []IndexData{
	newIndexData(jobTable, "ID", true),
	newIndexData(jobTable, "status", false),
}
