package redisstream

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/kbchat/pkg/config"
)

func TestGroupPerHandler(t *testing.T) {
	s := config.Default().Redis
	tr := New(s, watermill.NopLogger{})
	defer func() { _ = tr.Close() }()

	require.Equal(t, "kbchat-ui-ui", tr.GroupName("ui"))
	require.Equal(t, "kbchat-ui-plain", tr.GroupName("plain"))

	// building clients does not dial
	pub, err := tr.Publisher()
	require.NoError(t, err)
	require.NotNil(t, pub)
	sub, err := tr.GroupSubscriber("ui")
	require.NoError(t, err)
	require.NotNil(t, sub)
}
