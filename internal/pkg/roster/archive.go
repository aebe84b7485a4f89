package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/metrics/counter"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Uploader stores an archived roster.
type Uploader interface {
	PutObject(ctx context.Context, objectKey string, body []byte, contentType string) error
}

// Archiver exports the roster of one identity connection to object storage.
type Archiver struct {
	members    repository.MemberRepository
	connection string
	uploader   Uploader
	objectKey  func(t time.Time, id string) string
	metrics    *counter.Metrics
	now        func() time.Time
}

func NewArchiver(members repository.MemberRepository, connection string, uploader Uploader, objectKey func(time.Time, string) string, metrics *counter.Metrics) *Archiver {
	return &Archiver{
		members:    members,
		connection: connection,
		uploader:   uploader,
		objectKey:  objectKey,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run uploads one roster export and returns its object key.
func (a *Archiver) Run(ctx context.Context) (string, error) {
	now := a.now().UTC()

	members, err := a.members.ListByConnection(a.connection)
	if err != nil {
		a.metrics.RosterExport("archive", "error")
		return "", fmt.Errorf("list members: %w", err)
	}
	body, err := Render(members, now)
	if err != nil {
		a.metrics.RosterExport("archive", "error")
		return "", fmt.Errorf("render roster: %w", err)
	}

	key := a.objectKey(now, uuid.NewString())
	if err := a.uploader.PutObject(ctx, key, body, ContentType); err != nil {
		a.metrics.RosterExport("archive", "error")
		return "", err
	}
	a.metrics.RosterExport("archive", "ok")
	return key, nil
}

// Schedule registers the archive run on c with a standard five field spec.
func (a *Archiver) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		key, err := a.Run(ctx)
		if err != nil {
			fiberlog.Errorf("[RosterArchive] archive failed: %v", err)
			return
		}
		fiberlog.Infof("[RosterArchive] archived roster to %s", key)
	})
}
