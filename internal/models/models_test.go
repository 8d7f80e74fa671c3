package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_InsertionOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, _ := m.Get("b")
	assert.Equal(t, 3, v)
}

func TestMetadata_SetIfEmpty(t *testing.T) {
	m := NewMetadata()
	m.Set("title", "Explicit")
	m.Set("course", "")

	assert.False(t, m.SetIfEmpty("title", "Inferred"))
	assert.True(t, m.SetIfEmpty("course", "Finance"))
	assert.True(t, m.SetIfEmpty("class", "Accounting"))

	assert.Equal(t, "Explicit", m.String("title"))
	assert.Equal(t, "Finance", m.String("course"))
	assert.Equal(t, []string{"title", "course", "class"}, m.Keys())
}

func TestMetadata_OrderedKeys(t *testing.T) {
	m := NewMetadata()
	m.Set("extra", 1)
	m.Set("tags", []string{})
	m.Set("title", "x")
	m.Set("another", 2)

	got := m.OrderedKeys([]string{"title", "missing", "tags"})
	assert.Equal(t, []string{"title", "tags", "extra", "another"}, got)
}

func TestMetadata_DeleteAndClone(t *testing.T) {
	m := NewMetadata()
	m.Set("a", 1)
	m.Set("b", 2)
	c := m.Clone()
	m.Delete("a")

	assert.Equal(t, []string{"b"}, m.Keys())
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue([]string{}))
	assert.True(t, IsEmptyValue([]any{}))
	assert.True(t, IsEmptyValue(map[string]any{}))
	assert.False(t, IsEmptyValue(0))
	assert.False(t, IsEmptyValue(false))
	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue([]int{1}))
}

func TestQueueItem_StagesOnlyAdvance(t *testing.T) {
	now := time.Now()
	q := NewQueueItem(0, "a.pdf")
	require.NoError(t, q.Start(now))
	require.NoError(t, q.Advance(StageContentExtraction))
	require.NoError(t, q.Advance(StageNoteAssembly))

	assert.Error(t, q.Advance(StageSummaryGeneration))
	assert.Error(t, q.Advance(StageNoteAssembly))

	require.NoError(t, q.Complete(now.Add(time.Second)))
	assert.Equal(t, StatusCompleted, q.Status)
	assert.Equal(t, StageCompleted, q.Stage)
	assert.Equal(t, time.Second, q.Duration())

	q.Fail(errors.New("late"), now)
	assert.Equal(t, StatusCompleted, q.Status, "terminal items cannot fail")
}

func TestQueueItem_FailKeepsStage(t *testing.T) {
	q := NewQueueItem(0, "a.pdf")
	require.NoError(t, q.Start(time.Now()))
	require.NoError(t, q.Advance(StageContentExtraction))
	require.NoError(t, q.Advance(StageSummaryGeneration))

	q.Fail(errors.New("timeout"), time.Now())
	assert.Equal(t, StatusFailed, q.Status)
	assert.Equal(t, StageSummaryGeneration, q.Stage)
	assert.Error(t, q.Advance(StageNoteAssembly))
}

func TestBatchProcessResult_Averages(t *testing.T) {
	r := BatchProcessResult{
		Processed:            4,
		TotalBatchDuration:   8 * time.Second,
		SummaryCount:         2,
		TotalSummaryDuration: 3 * time.Second,
	}
	r.ComputeAverages()
	assert.Equal(t, 2*time.Second, r.AverageFileDuration)
	assert.Equal(t, 1500*time.Millisecond, r.AverageSummaryDuration)

	var empty BatchProcessResult
	empty.ComputeAverages()
	assert.Zero(t, empty.AverageFileDuration)
}
