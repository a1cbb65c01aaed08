package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/config"
)

const partyPayload = `{"type":"CombatData","isActive":"true",
"Encounter":{"title":"Striking Dummy","duration":"01:05","damage":"61000"},
"Combatant":{
 "a":{"name":"Alys Tan","Job":"WHM","damage":"1000","damage%":"2%"},
 "b":{"name":"YOU","Job":"SCH","damage":"48000","damage%":"79%"},
 "c":{"name":"Oro Moro","Job":"DRG","damage":"12000","damage%":"19%"}}}`

func decodeEvent(t *testing.T, payload string) *combat.Event {
	t.Helper()
	ev, err := combat.Decode([]byte(payload), time.Now())
	require.NoError(t, err)
	return ev
}

func testRenderConfig() config.RenderConfig {
	return config.RenderConfig{
		Enabled:         true,
		Interval:        config.Duration(10 * time.Millisecond),
		EncounterFormat: "[title] [damagetotal]",
		CombatantFormat: "[rank] [name] [job] [damagetotal]",
		SortBy:          "damagetotal",
		TopN:            2,
		Grouping:        true,
	}
}

func TestRenderer_Render(t *testing.T) {
	r := newRenderer(testRenderConfig())
	out := r.Render(decodeEvent(t, partyPayload))

	assert.Equal(t, strings.Join([]string{
		"Striking Dummy 61,000",
		"1 YOU SCH 48,000",
		"2 Oro Moro DRG 12,000",
	}, "\n"), out)
}

func TestRenderer_EndedAndEveryone(t *testing.T) {
	cfg := testRenderConfig()
	cfg.TopN = 0
	cfg.Grouping = false
	r := newRenderer(cfg)

	out := r.Render(decodeEvent(t, strings.Replace(partyPayload, `"isActive":"true"`, `"isActive":"false"`, 1)))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Striking Dummy 61000 (ended)", lines[0])
	assert.Equal(t, "3 Alys Tan WHM 1000", lines[3])
}

func TestRenderer_Incomplete(t *testing.T) {
	r := newRenderer(testRenderConfig())
	assert.Empty(t, r.Render(nil))
	assert.Empty(t, r.Render(decodeEvent(t, `{"type":"CombatData","isActive":"true"}`)))
}

// syncBuffer is a bytes.Buffer safe for the render goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRenderer_RunPrintsEachEventOnce(t *testing.T) {
	r := newRenderer(testRenderConfig())
	ev := decodeEvent(t, partyPayload)

	var mu sync.Mutex
	current := (*combat.Event)(nil)
	source := func() *combat.Event {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, source, &out) }()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, out.String())

	mu.Lock()
	current = ev
	mu.Unlock()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Striking Dummy") },
		time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "Striking Dummy"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("renderer did not stop")
	}
}
