package history

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/events"
)

type fakeLister struct {
	convs []api.Conversation
	err   error
}

func (f *fakeLister) ListConversations(context.Context) ([]api.Conversation, error) {
	return f.convs, f.err
}

func TestRefreshAndActive(t *testing.T) {
	fl := &fakeLister{convs: []api.Conversation{
		{ID: "2", Title: "Second", Preview: "hello"},
		{ID: "1", Title: "First"},
	}}
	rec := &events.Recorder{}
	l := NewList(fl, rec)

	l.SetActive("1")
	require.NoError(t, l.Refresh(context.Background()))

	entries := l.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "Second", entries[0].Title)
	require.False(t, entries[0].Active)
	require.True(t, entries[1].Active)
	require.Equal(t, api.ConversationID("1"), l.Active())

	l.ClearActive()
	for _, e := range l.Entries() {
		require.False(t, e.Active)
	}
	require.True(t, l.Active().IsZero())

	require.Equal(t, []events.EventType{
		events.EventHistoryChanged,
		events.EventHistoryChanged,
		events.EventHistoryChanged,
	}, rec.Types())
}

func TestRefreshErrorKeepsEntries(t *testing.T) {
	fl := &fakeLister{convs: []api.Conversation{{ID: "1", Title: "First"}}}
	l := NewList(fl, nil)
	require.NoError(t, l.Refresh(context.Background()))

	fl.err = &api.APIError{Status: 500, Message: "boom"}
	err := l.Refresh(context.Background())
	require.Error(t, err)
	require.Equal(t, 500, api.StatusOf(err))
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Len(t, l.Entries(), 1)
}

func TestRemove(t *testing.T) {
	fl := &fakeLister{convs: []api.Conversation{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	l := NewList(fl, nil)
	require.NoError(t, l.Refresh(context.Background()))
	l.SetActive("2")

	require.True(t, l.Remove("2"))
	require.False(t, l.Remove("2"))
	require.True(t, l.Active().IsZero())

	entries := l.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, api.ConversationID("1"), entries[0].ID)
	require.Equal(t, api.ConversationID("3"), entries[1].ID)
}
