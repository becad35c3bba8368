package room

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMember_CapacityAndIdempotence(t *testing.T) {
	r := Room{RoomID: "ab12cd", HostEmail: "alice@example.com", Members: []string{"alice@example.com"}, Status: StatusWaiting}

	require.NoError(t, r.AddMember("bob@example.com"))
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, r.Members)

	// Re-joining must not duplicate the seat.
	require.NoError(t, r.AddMember("bob@example.com"))
	assert.Len(t, r.Members, 2)

	// Third distinct member bounces off the capacity limit.
	err := r.AddMember("carol@example.com")
	assert.Equal(t, RoomFull, KindOf(err))
	assert.Len(t, r.Members, 2)
}

func TestClone_DoesNotShareMembers(t *testing.T) {
	r := Room{RoomID: "x", Members: []string{"a"}}
	c := r.Clone()
	c.Members[0] = "b"
	assert.Equal(t, "a", r.Members[0])
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Kind("")},
		{"tagged", Err(NotFound, "gone"), NotFound},
		{"wrapped", fmt.Errorf("delete: %w", Err(Forbidden, "not host")), Forbidden},
		{"untagged", errors.New("boom"), Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusWaiting.Valid())
	assert.False(t, Status("paused").Valid())
	assert.True(t, StatusFinished.Terminal())
	assert.False(t, StatusPlaying.Terminal())
}
