package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tradewire/ictbot/internal/domain"
)

// keyTimeLayout gives journal keys a lexicographically sortable timestamp.
const keyTimeLayout = "20060102T150405Z"

// Journal implements domain.Journal by writing each closed position as a
// JSON object under closed/<year>/<month>/<day>/. Records are never read
// back by the service; the bucket is an audit trail for offline analysis.
type Journal struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ domain.Journal = (*Journal)(nil)

// NewJournal creates a Journal writing into c's bucket under prefix
// (empty means bucket root).
func NewJournal(c *Client, prefix string) *Journal {
	return &Journal{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
		prefix:   prefix,
	}
}

// Record uploads the closure as a pretty-printed JSON object.
func (j *Journal) Record(ctx context.Context, closed domain.ClosedPosition) error {
	data, err := json.MarshalIndent(closed, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal closed position: %w", err)
	}

	key := j.key(closed)
	_, err = j.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(j.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", key, err)
	}
	return nil
}

func (j *Journal) key(closed domain.ClosedPosition) string {
	at := closed.ClosedAt.UTC()
	key := fmt.Sprintf("closed/%s/%s-%s-%s.json",
		at.Format("2006/01/02"),
		closed.Position.Symbol,
		closed.Reason,
		at.Format(keyTimeLayout),
	)
	if j.prefix != "" {
		return j.prefix + "/" + key
	}
	return key
}
