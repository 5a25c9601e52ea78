package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"rehaulx/internal/config"
	"rehaulx/internal/model"
	"rehaulx/internal/pgmq"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu      sync.Mutex
	batches [][]*pgmq.Message
	cancel  context.CancelFunc
	deleted []int64
	dlq     [][]byte
}

func (q *fakeQueue) ReadWithPoll(ctx context.Context, queue string, vtSec, maxMessages int) ([]*pgmq.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.batches) == 0 {
		q.cancel()
		return nil, nil
	}
	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, nil
}

func (q *fakeQueue) Send(ctx context.Context, queue string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dlq = append(q.dlq, payload)
	return nil
}

func (q *fakeQueue) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, msgIDs...)
	return nil
}

type fakeFrameVideos struct {
	urls []string
}

func (f *fakeFrameVideos) Analyze(ctx context.Context, url string) (*model.VideoInfo, error) {
	return nil, nil
}

func (f *fakeFrameVideos) ExtractFrames(ctx context.Context, url string, timestamps []float64) ([]model.KeyFrame, error) {
	f.urls = append(f.urls, url)
	return []model.KeyFrame{{Timestamp: timestamps[0], ImageURL: "https://cdn.example.com/frame.jpg"}}, nil
}

type fakeFrameProjects struct {
	statuses []string
	ids      []int64
}

func (f *fakeFrameProjects) Create(ctx context.Context, p *model.Project) error { return nil }
func (f *fakeFrameProjects) GetByID(ctx context.Context, id int64, userID string) (*model.Project, error) {
	return nil, nil
}
func (f *fakeFrameProjects) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	return nil, nil
}
func (f *fakeFrameProjects) Delete(ctx context.Context, id int64, userID string) error { return nil }
func (f *fakeFrameProjects) CountByUser(ctx context.Context, userID string) (int, error) {
	return 0, nil
}
func (f *fakeFrameProjects) UpdateKeyFrames(ctx context.Context, id int64, frames []model.KeyFrame, status string) error {
	f.ids = append(f.ids, id)
	f.statuses = append(f.statuses, status)
	return nil
}

func TestRunProcessesEveryMessageInBatch(t *testing.T) {
	msgs := make([]*pgmq.Message, 0, 3)
	for i, id := range []int64{11, 12, 13} {
		payload, err := json.Marshal(FrameJob{
			ProjectID:  int64(100 + i),
			VideoURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Timestamps: []float64{30},
		})
		require.NoError(t, err)
		msgs = append(msgs, &pgmq.Message{ID: id, Data: payload})
	}
	// A malformed payload in the middle of the batch must not stop the
	// messages behind it from being handled.
	msgs[1].Data = []byte("{not json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := &fakeQueue{batches: [][]*pgmq.Message{msgs}, cancel: cancel}
	videos := &fakeFrameVideos{}
	projects := &fakeFrameProjects{}

	cfg := &config.Config{
		FrameQueueName:           "frame_jobs",
		FrameVisibilityTimeout:   1,
		FramePollMaxMsg:          5,
		FrameMaxRetries:          1,
		FrameBackoffInitialSec:   0,
		FrameBackoffMaxSec:       1,
		FrameDeadLetterQueueName: "frame_jobs_dlq",
	}

	err := Run(ctx, cfg, zerolog.Nop(), queue, videos, projects)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{11, 12, 13}, queue.deleted)
	assert.Len(t, videos.urls, 2)
	assert.Empty(t, queue.dlq)
	assert.Equal(t, []int64{100, 102}, projects.ids)
	assert.Equal(t, []string{"completed", "completed"}, projects.statuses)
}
