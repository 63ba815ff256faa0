package domain

// ProgressState is the extractor's status for a progress tick.
type ProgressState string

const (
	ProgressDownloading ProgressState = "downloading"
	ProgressFinished    ProgressState = "finished"
)

// ProgressUpdate is a raw byte-counter tick from the extractor.
type ProgressUpdate struct {
	State      ProgressState
	BytesDone  int64
	BytesTotal int64
}

// Progress is the snapshot handed to a progress sink.
type Progress struct {
	State      ProgressState `json:"state"`
	BytesDone  int64         `json:"bytes_done"`
	BytesTotal int64         `json:"bytes_total"`
	Fraction   float64       `json:"fraction"`
	Text       string        `json:"text"`
}

// ProgressFunc receives progress snapshots synchronously.
type ProgressFunc func(Progress)
