package session

import (
	"testing"

	"github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/payload"
)

func FuzzDecryptPacketNoPanic(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, 8))
	f.Add(make([]byte, 40))

	f.Fuzz(func(t *testing.T, frame []byte) {
		signKeys, err := crypto.GenerateSignKeyPair()
		if err != nil {
			t.Skip()
		}
		client := NewClientSession(signKeys.Public)
		server := NewServerSession(signKeys)

		hello, err := client.ClientInitiateHandshake()
		if err != nil {
			t.Fatalf("initiate: %v", err)
		}
		serverHello, err := server.ServerRespondToHandshake(hello)
		if err != nil {
			t.Fatalf("respond: %v", err)
		}
		if err := client.ClientFinalizeHandshake(serverHello); err != nil {
			t.Fatalf("finalize: %v", err)
		}

		// DecryptPacket must never panic on arbitrary input, regardless
		// of whether it returns an error.
		_, _ = server.DecryptPacket(frame)
	})
}

func FuzzEncryptDecryptPayload(f *testing.F) {
	f.Add(uint16(1), []byte("hello"))
	f.Add(uint16(0), []byte{})

	f.Fuzz(func(t *testing.T, opCode uint16, data []byte) {
		signKeys, err := crypto.GenerateSignKeyPair()
		if err != nil {
			t.Skip()
		}
		client := NewClientSession(signKeys.Public)
		server := NewServerSession(signKeys)

		hello, err := client.ClientInitiateHandshake()
		if err != nil {
			t.Fatalf("initiate: %v", err)
		}
		serverHello, err := server.ServerRespondToHandshake(hello)
		if err != nil {
			t.Fatalf("respond: %v", err)
		}
		if err := client.ClientFinalizeHandshake(serverHello); err != nil {
			t.Fatalf("finalize: %v", err)
		}

		p := payload.NewPayloadBuilder(opCode).AddBytes(data).Build()
		frame, err := client.EncryptPayload(p)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}

		decoded, err := server.DecryptPacket(frame)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if decoded.OpCode != opCode {
			t.Fatalf("opcode mismatch: got %d want %d", decoded.OpCode, opCode)
		}
	})
}
