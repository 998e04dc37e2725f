package session

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-project/obscuraproto/internal/metrics"
	"github.com/obscura-project/obscuraproto/payload"
)

func TestHandshakeDrivesCryptoMetrics(t *testing.T) {
	signBefore := testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("sign", "ed25519"))
	verifyBefore := testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("verify", "ed25519"))
	kxBefore := testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("kx", "x25519"))

	newHandshakenPair(t)

	assert.Equal(t, signBefore+1, testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("sign", "ed25519")))
	assert.Equal(t, verifyBefore+1, testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("verify", "ed25519")))
	assert.Equal(t, kxBefore+2, testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("kx", "x25519")))
}

func TestRecordLayerDrivesCryptoAndSizeMetrics(t *testing.T) {
	client, server := newHandshakenPair(t)

	encBefore := testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("encrypt", "xchacha20poly1305"))
	decBefore := testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("decrypt", "xchacha20poly1305"))
	outBefore := messageSizeSamples(t, "outbound")
	inBefore := messageSizeSamples(t, "inbound")

	p := payload.NewPayloadBuilder(1).AddString("hi").Build()
	frame, err := client.EncryptPayload(p)
	require.NoError(t, err)

	_, err = server.DecryptPacket(frame)
	require.NoError(t, err)

	assert.Equal(t, encBefore+1, testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("encrypt", "xchacha20poly1305")))
	assert.Equal(t, decBefore+1, testutil.ToFloat64(metrics.CryptoOperations.WithLabelValues("decrypt", "xchacha20poly1305")))
	assert.Equal(t, outBefore+1, messageSizeSamples(t, "outbound"))
	assert.Equal(t, inBefore+1, messageSizeSamples(t, "inbound"))
}

// messageSizeSamples returns how many frame sizes SessionMessageSize has
// observed for direction.
func messageSizeSamples(t *testing.T, direction string) uint64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "obscuraproto_sessions_message_size_bytes" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "direction" && l.GetValue() == direction {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestTamperedFrameDrivesCryptoErrors(t *testing.T) {
	client, server := newHandshakenPair(t)

	errBefore := testutil.ToFloat64(metrics.CryptoErrors.WithLabelValues("decrypt"))

	p := payload.NewPayloadBuilder(1).AddString("hi").Build()
	frame, err := client.EncryptPayload(p)
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0x01

	_, err = server.DecryptPacket(frame)
	assert.ErrorIs(t, err, ErrAuthFailure)

	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.CryptoErrors.WithLabelValues("decrypt")))
}

func TestReplayedFrameDrivesReplayMetric(t *testing.T) {
	client, server := newHandshakenPair(t)

	replaysBefore := testutil.ToFloat64(metrics.ReplayAttacksDetected)

	p := payload.NewPayloadBuilder(1).AddInt8(1).Build()
	frame, err := client.EncryptPayload(p)
	require.NoError(t, err)

	_, err = server.DecryptPacket(frame)
	require.NoError(t, err)

	_, err = server.DecryptPacket(frame)
	assert.ErrorIs(t, err, ErrReplayOrReorder)

	assert.Equal(t, replaysBefore+1, testutil.ToFloat64(metrics.ReplayAttacksDetected))
}
