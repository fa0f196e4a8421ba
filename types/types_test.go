package types

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Action: ActionAdd, NewItems: []any{1}, NewIndex: 2, Reason: ReasonDirect}, "add 1@2 (direct)"},
		{Event{Action: ActionRemove, OldItems: []any{1, 2}, OldIndex: 0, Reason: ReasonReconciled}, "remove 2@0 (reconciled)"},
		{Event{Action: ActionReplace, NewIndex: 3, Reason: ReasonDirect}, "replace @3 (direct)"},
		{Event{Action: ActionMove, OldIndex: 0, NewIndex: 4, Reason: ReasonReconciled}, "move 0->4 (reconciled)"},
		{Event{Action: ActionChange, NewItems: []any{"a"}, NewIndex: 1, Reason: ReasonReconciled}, "change 1@1 (reconciled)"},
		{Event{Action: ActionReset, NewItems: []any{1, 2, 3}, Reason: ReasonEscalated}, "reset 3 items (escalated)"},
		{Event{Action: ActionReset}, "reset 0 items"},
		{Event{Action: Action(42)}, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ev.String())
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(Event{Action: ActionMove, OldIndex: 1, NewIndex: 0, Reason: ReasonReconciled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"move","newIndex":0,"oldIndex":1,"reason":"reconciled"}`, string(data))
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		from                  LifecycleState
		write, accept, reject LifecycleState
	}{
		{Detached, Detached, Detached, Detached},
		{Unchanged, Changed, Unchanged, Unchanged},
		{Changed, Changed, Unchanged, Detached},
		{Added, Added, Unchanged, Added},
		{Deleted, Deleted, Detached, Deleted},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			assert.Equal(t, tt.write, tt.from.AfterWrite())
			assert.Equal(t, tt.accept, tt.from.AfterAccept())
			assert.Equal(t, tt.reject, tt.from.AfterReject())
		})
	}
}

func TestLifecycleText(t *testing.T) {
	for _, s := range []LifecycleState{Detached, Unchanged, Changed, Added, Deleted} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back LifecycleState
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	got, err := ParseLifecycleState("  Changed ")
	require.NoError(t, err)
	assert.Equal(t, Changed, got)

	_, err = ParseLifecycleState("archived")
	assert.Error(t, err)
	_, err = LifecycleState(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown", LifecycleState(99).String())
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		format  FormatDescriptor
		in      any
		want    any
		wantErr bool
	}{
		{"any passes through", AnyFormat("x"), []int{1}, []int{1}, false},
		{"string from int", FormatDescriptor{Name: "s", Kind: KindString}, 12, "12", false},
		{"int from string", FormatDescriptor{Name: "n", Kind: KindInt}, "37", 37, false},
		{"int from junk", FormatDescriptor{Name: "n", Kind: KindInt}, "lots", nil, true},
		{"float from int", FormatDescriptor{Name: "f", Kind: KindFloat}, 2, 2.0, false},
		{"bool from string", FormatDescriptor{Name: "b", Kind: KindBool}, "true", true, false},
		{"nil for nullable", FormatDescriptor{Name: "n", Kind: KindInt, Nullable: true}, nil, nil, false},
		{"nil for required", FormatDescriptor{Name: "n", Kind: KindInt}, nil, nil, true},
		{"object from map", FormatDescriptor{Name: "o", Kind: KindObject}, map[string]any{"a": 1}, map[string]any{"a": 1}, false},
		{"object from scalar", FormatDescriptor{Name: "o", Kind: KindObject}, 3, nil, true},
		{"list from slice", FormatDescriptor{Name: "l", Kind: KindList}, []string{"a"}, []string{"a"}, false},
		{"list from scalar", FormatDescriptor{Name: "l", Kind: KindList}, "a", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.format.Coerce(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := FormatDescriptor{Name: "t", Kind: KindTime}.Coerce("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, got.(time.Time).Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, Kind("").IsValid())
	assert.True(t, KindList.IsValid())
	assert.False(t, Kind("decimal").IsValid())
}

type pair struct{ a, b int }

type boxed struct{ v any }

func TestSame(t *testing.T) {
	p := &pair{1, 2}
	m := map[string]int{"a": 1}
	s := []int{1, 2}

	assert.True(t, Same(p, p))
	assert.False(t, Same(p, &pair{1, 2}))
	assert.True(t, Same(m, m))
	assert.False(t, Same(m, map[string]int{"a": 1}))
	assert.True(t, Same(s, s))
	assert.False(t, Same(s, s[:1]))
	assert.True(t, Same(pair{1, 2}, pair{1, 2}))
	assert.True(t, Same("x", "x"))
	assert.False(t, Same(1, int64(1)))
	assert.True(t, Same(nil, nil))
	assert.False(t, Same(nil, 0))
	assert.True(t, Same(boxed{[]int{1}}, boxed{[]int{1}}))
}

func TestIsObjectLike(t *testing.T) {
	assert.True(t, IsObjectLike(map[string]any{}))
	assert.True(t, IsObjectLike(&pair{}))
	assert.True(t, IsObjectLike([]int{}))
	assert.False(t, IsObjectLike(1))
	assert.False(t, IsObjectLike("s"))
	assert.False(t, IsObjectLike(nil))
}

func TestNewSnapshot(t *testing.T) {
	originals := map[string]any{"title": "draft", "count": 1}
	snap := NewSnapshot(originals, Changed)
	originals["title"] = "mutated"

	want := Snapshot{
		ChangedFields:  []string{"count", "title"},
		OriginalValues: map[string]any{"title": "draft", "count": 1},
		LifecycleState: Changed,
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsReadOnlyPropertyError(NewReadOnlyPropertyError("full")))
	assert.True(t, IsUnknownFieldError(NewUnknownFieldError("x")))
	assert.True(t, IsInvalidIndexError(NewInvalidIndexError(5, 2)))
	assert.True(t, IsReentrancyError(NewReentrancyError("collection")))
	assert.True(t, IsIncompatibleStorageError(NewIncompatibleStorageError("map", "tuple")))
	assert.False(t, IsInvalidIndexError(nil))
	assert.False(t, IsReentrancyError(ErrInvalidIndex))

	assert.Contains(t, NewInvalidIndexError(5, 2).Error(), "index 5")
}
