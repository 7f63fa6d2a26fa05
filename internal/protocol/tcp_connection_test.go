package protocol

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// startPrinter runs a fake network printer that answers each 3 byte request
// with reply after delay. A nil reply never answers.
func startPrinter(t *testing.T, reply []byte, delay time.Duration) *net.TCPAddr {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				request := make([]byte, 3)
				for {
					if _, err := readFull(conn, request); err != nil {
						return
					}
					if reply == nil {
						continue
					}
					time.Sleep(delay)
					if _, err := conn.Write(reply); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func newTestTCP(t *testing.T, addr *net.TCPAddr, readTimeout time.Duration) DeviceProtocol {
	t.Helper()
	conn := NewTCPConnection(&TCPConfig{
		Host:        addr.IP.String(),
		Port:        addr.Port,
		Timeout:     time.Second,
		ReadTimeout: readTimeout,
		BufferSize:  64,
	}, zap.NewNop())
	require.NoError(t, conn.Open(context.Background()))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTCPConnection_StatusRoundTrip(t *testing.T) {
	addr := startPrinter(t, []byte{0x16}, 0)
	conn := newTestTCP(t, addr, time.Second)

	assert.True(t, conn.IsOpen())
	assert.Equal(t, model.ConnectionTypeTCP, conn.GetProtocolType())

	require.NoError(t, conn.Write(context.Background(), []byte{0x10, 0x04, 0x01}))

	data, err := conn.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x16}, data)

	stats := conn.Stats()
	assert.Equal(t, int64(3), stats.BytesWritten)
	assert.Equal(t, int64(1), stats.BytesRead)
	assert.True(t, stats.IsConnected)
}

func TestTCPConnection_ReadTimeout(t *testing.T) {
	addr := startPrinter(t, nil, 0)
	conn := newTestTCP(t, addr, 50*time.Millisecond)

	require.NoError(t, conn.Write(context.Background(), []byte{0x10, 0x04, 0x01}))

	data, err := conn.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, int64(1), conn.Stats().ReadTimeouts)
}

func TestTCPConnection_DelayedReplyDropped(t *testing.T) {
	addr := startPrinter(t, []byte{0x16}, 150*time.Millisecond)
	conn := newTestTCP(t, addr, 50*time.Millisecond)

	require.NoError(t, conn.Write(context.Background(), []byte{0x10, 0x04, 0x01}))
	data, err := conn.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)

	// let the late reply arrive while nothing is waiting
	time.Sleep(250 * time.Millisecond)

	data, err = conn.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTCPConnection_NotOpen(t *testing.T) {
	conn := NewTCPConnection(&TCPConfig{Host: "127.0.0.1", Port: 9100}, zap.NewNop())

	err := conn.Write(context.Background(), []byte{0x1B, 0x40})
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = conn.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)

	assert.NoError(t, conn.Close())
}

func TestTCPConnection_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	conn := NewTCPConnection(&TCPConfig{
		Host:    addr.IP.String(),
		Port:    addr.Port,
		Timeout: time.Second,
	}, zap.NewNop())

	assert.Error(t, conn.Open(context.Background()))
	assert.False(t, conn.IsOpen())
}

func TestTCPConnection_PeerClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	conn := newTestTCP(t, ln.Addr().(*net.TCPAddr), time.Second)

	_, err = conn.Read(context.Background())
	assert.Error(t, err)
}
