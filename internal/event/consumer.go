package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/coursesearch/internal/domain"
	pkgkafka "github.com/utafrali/coursesearch/pkg/kafka"
)

// Topics carrying course changes from the catalogue. The event type of each
// message equals its topic name.
var (
	TopicCourseUpserted = pkgkafka.Topic("course", "upserted")
	TopicCourseDeleted  = pkgkafka.Topic("course", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicCourseUpserted, TopicCourseDeleted}
}

// CourseDeletedData is the payload of a course.deleted event.
type CourseDeletedData struct {
	ID string `json:"id"`
}

// CourseIndexer is the part of the search service that applies course changes.
type CourseIndexer interface {
	IndexCourse(ctx context.Context, course *domain.Course) error
	DeleteCourse(ctx context.Context, id string) error
}

// Consumer applies course events to the search index.
type Consumer struct {
	indexer CourseIndexer
	logger  *slog.Logger
}

// NewConsumer creates a new course event consumer.
func NewConsumer(indexer CourseIndexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type. Unknown types are logged
// and acknowledged.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicCourseUpserted:
		return c.handleCourseUpserted(ctx, event)
	case TopicCourseDeleted:
		return c.handleCourseDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleCourseUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var course domain.Course
	if err := event.DecodeData(&course); err != nil {
		return err
	}
	if course.ID == "" {
		course.ID = event.AggregateID
	}

	if err := c.indexer.IndexCourse(ctx, &course); err != nil {
		return fmt.Errorf("index course from upserted event: %w", err)
	}

	c.logger.InfoContext(ctx, "indexed course from upserted event",
		slog.String("course_id", course.ID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func (c *Consumer) handleCourseDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data CourseDeletedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	if err := c.indexer.DeleteCourse(ctx, data.ID); err != nil {
		return fmt.Errorf("delete course from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "removed course from deleted event",
		slog.String("course_id", data.ID),
		slog.String("event_id", event.EventID),
	)
	return nil
}
