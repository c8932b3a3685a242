package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Data types a worker may write. At most one live entry exists per
// (job_id, data_type); a re-run overwrites.
const (
	DataTypeWebsite           = "website"
	DataTypeAmazon            = "amazon"
	DataTypeReddit            = "reddit"
	DataTypeYouTube           = "youtube"
	DataTypePersona           = "persona"
	DataTypeAmazonCompetitors = "amazon_competitors"
	DataTypeReviews           = "reviews"
)

// DataWorkerCount is the number of data-collection workers feeding persona
// generation (website, amazon, reddit, youtube).
const DataWorkerCount = 4

// JobDataEntry is the durable output record of one worker run. It is the only
// channel by which the orchestrator and the status API learn a worker's
// result; nothing is threaded through return values across invocations.
type JobDataEntry struct {
	JobID     uuid.UUID       `db:"job_id"     json:"job_id"`
	DataType  string          `db:"data_type"  json:"data_type"`
	Payload   json.RawMessage `db:"payload"    json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
