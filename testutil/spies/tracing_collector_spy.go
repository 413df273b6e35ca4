package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// SpySpanContext implements onboarding.SpanContext for testing tracing functionality.
type SpySpanContext struct {
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

// SetStatus implements the SpanContext interface.
func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// AddAttribute implements the SpanContext interface.
func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}
	c.attributes[key] = value
}

// SpySpanRecord represents a recorded span for testing.
type SpySpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
	Finished        bool
	SpanContext     *SpySpanContext
}

// TracingCollectorSpy is a TracingCollector implementation that captures tracing calls for testing.
type TracingCollectorSpy struct {
	spanRecords []SpySpanRecord
	mu          sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, onboarding.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spanCtx := &SpySpanContext{attributes: make(map[string]string)}
	s.spanRecords = append(s.spanRecords, SpySpanRecord{
		Name:            name,
		StartAttributes: maps.Clone(attrs),
		SpanContext:     spanCtx,
	})

	return ctx, spanCtx
}

// FinishSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) FinishSpan(spanCtx onboarding.SpanContext, status string, attrs map[string]string) {
	testSpanCtx, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.spanRecords {
		if s.spanRecords[i].SpanContext == testSpanCtx {
			s.spanRecords[i].Status = status
			s.spanRecords[i].EndAttributes = maps.Clone(attrs)
			s.spanRecords[i].Finished = true
			break
		}
	}
}

// GetSpanRecords returns a copy of all captured span records.
func (s *TracingCollectorSpy) GetSpanRecords() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpySpanRecord(nil), s.spanRecords...)
}

// SpanRecordsForName returns the captured span records with the given name, in start order.
func (s *TracingCollectorSpy) SpanRecordsForName(name string) []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []SpySpanRecord
	for _, record := range s.spanRecords {
		if record.Name == name {
			records = append(records, record)
		}
	}

	return records
}
