package model

const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

const (
	ChunkStatusPending = "pending"
	ChunkStatusDone    = "done"
)

type ImportJob struct {
	ID              string
	OwnerID         string
	Format          string
	Status          string
	Total           int
	Skipped         int
	Imported        int
	Failed          int
	TotalChunks     int
	ProcessedChunks int
	Tags            []string
	Error           string
	ArchiveKey      string
	Ctime           int64
	Mtime           int64
}

// Remaining is the number of chunks that have not been completed yet.
func (j *ImportJob) Remaining() int {
	if j.ProcessedChunks >= j.TotalChunks {
		return 0
	}
	return j.TotalChunks - j.ProcessedChunks
}

func (j *ImportJob) Summary() *ImportSummary {
	return &ImportSummary{
		Imported: j.Imported,
		Skipped:  j.Skipped,
		Failed:   j.Failed,
		Total:    j.Total,
		Format:   j.Format,
	}
}

type ImportChunk struct {
	ID        string
	JobID     string
	OwnerID   string
	Index     int
	Status    string
	Bookmarks []ChunkBookmark
	Ctime     int64
}

// ChunkBookmark is a bookmark waiting in a chunk together with the record key
// it will be written under. The key is fixed when the job is created so a
// retried chunk reuses it.
type ChunkBookmark struct {
	RKey string `json:"rkey"`
	ImportedBookmark
}

type ImportSummary struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Total    int    `json:"total"`
	Format   string `json:"format"`
}
