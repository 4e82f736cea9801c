package app

import (
	"context"
	"encoding/json"
	"testing"

	"secure_chat_relay/internal/relay/domain"

	"github.com/stretchr/testify/assert"
)

// signalPair 兩人同房的標準佈局
func signalPair(t *testing.T, f *relayFixture) (alice, bob *Session) {
	t.Helper()
	ctx := context.Background()
	roomID, _ := f.rooms.Create(ctx, "Cell", "Alice")
	alice = f.connect()
	f.join(t, alice, roomID, "uA", "Alice")
	bob = f.connect()
	f.join(t, bob, roomID, "uB", "Bob")
	drain(alice)
	return alice, bob
}

// 測試打字指示：start 帶名字、stop 不帶，都不回送給發起者
func TestSignalUseCase_Typing(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	f.signals.Typing(ctx, alice, true)
	kind, data, ok := nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.UserTyping, kind)
	var p domain.PresencePayload
	assert.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, alice.ID, p.UserID)
	assert.Equal(t, "Alice", p.UserName)
	noFrame(t, alice)

	f.signals.Typing(ctx, alice, false)
	kind, data, ok = nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.UserStoppedTyping, kind)
	assert.NotContains(t, string(data), "userName")

	// 沒加入房間的人打字沒人理
	stranger := f.connect()
	f.signals.Typing(ctx, stranger, true)
	noFrame(t, bob)
}

// 測試語音頻道進出的在場廣播
func TestSignalUseCase_VoicePresence(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	f.signals.VoicePresence(ctx, alice, true)
	kind, data, ok := nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.UserJoinedVoice, kind)
	var p domain.PresencePayload
	assert.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, alice.ID, p.UserID)
	assert.Equal(t, "Alice", p.UserName)
	noFrame(t, alice)

	f.signals.VoicePresence(ctx, alice, false)
	kind, data, ok = nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.UserLeftVoice, kind)
	assert.NotContains(t, string(data), "userName")

	var left domain.PresencePayload
	assert.NoError(t, json.Unmarshal(data, &left))
	assert.Equal(t, alice.ID, left.UserID)
	assert.Empty(t, left.UserName)
}

// 測試畫布筆劃原封不動轉發
func TestSignalUseCase_CanvasStroke(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	stroke := json.RawMessage(`{"iv":"AAAA","blob":"ZW5jcnlwdGVk"}`)
	f.signals.CanvasStroke(ctx, alice, domain.CanvasStrokePayload{Stroke: stroke})

	kind, data, ok := nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.CanvasStroke, kind)
	var out domain.CanvasStrokeOut
	assert.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, alice.ID, out.SenderID)
	assert.JSONEq(t, string(stroke), string(out.Stroke))
	noFrame(t, alice)

	// 空筆劃丟掉
	f.signals.CanvasStroke(ctx, alice, domain.CanvasStrokePayload{})
	noFrame(t, bob)
}

// 測試金鑰交換仲介：init 廣播、response 只回給目標
func TestSignalUseCase_HandshakeBroker(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	roomID, _ := f.rooms.Create(ctx, "Cell", "Alice")

	alice := f.connect()
	f.join(t, alice, roomID, "uA", "Alice")
	bob := f.connect()
	f.join(t, bob, roomID, "uB", "Bob")
	carol := f.connect()
	f.join(t, carol, roomID, "uC", "Carol")
	drain(alice)
	drain(bob)

	// Carol 廣播她的 KEM 公鑰
	f.signals.HandshakeInit(ctx, carol, domain.HandshakeInitPayload{PK: "kem-pk-b64"})
	for _, s := range []*Session{alice, bob} {
		kind, data, ok := nextFrame(t, s)
		assert.True(t, ok)
		assert.Equal(t, domain.HandshakeRequest, kind)
		var req domain.HandshakeRequestPayload
		assert.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, carol.ID, req.SenderID)
		assert.Equal(t, "kem-pk-b64", req.PK)
	}
	noFrame(t, carol)

	// Alice 把包好的房間金鑰回給 Carol，Bob 不該看到
	f.signals.HandshakeResponse(ctx, alice, domain.HandshakeResponsePayload{
		TargetID:     carol.ID,
		Ciphertext:   "kem-ct",
		EncryptedKey: "wrapped-room-key",
	})
	kind, data, ok := nextFrame(t, carol)
	assert.True(t, ok)
	assert.Equal(t, domain.HandshakeComplete, kind)
	var done domain.HandshakeCompletePayload
	assert.NoError(t, json.Unmarshal(data, &done))
	assert.Equal(t, "kem-ct", done.Ciphertext)
	assert.Equal(t, "wrapped-room-key", done.EncryptedKey)
	noFrame(t, bob)
}

// 測試獨自一人的 handshake-init 沒有任何回應
func TestSignalUseCase_HandshakeAlone(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	roomID, _ := f.rooms.Create(ctx, "Cell", "Alice")

	alice := f.connect()
	f.join(t, alice, roomID, "uA", "Alice")

	f.signals.HandshakeInit(ctx, alice, domain.HandshakeInitPayload{PK: "kem-pk-b64"})
	noFrame(t, alice)

	// 空公鑰也丟掉
	f.signals.HandshakeInit(ctx, alice, domain.HandshakeInitPayload{})
	noFrame(t, alice)
}

// 測試 handshake-response 指向不在房裡的目標時被丟掉
func TestSignalUseCase_HandshakeResponseUnknownTarget(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	f.signals.HandshakeResponse(ctx, alice, domain.HandshakeResponsePayload{
		TargetID:     "s-nobody",
		Ciphertext:   "ct",
		EncryptedKey: "ek",
	})
	noFrame(t, alice)
	noFrame(t, bob)
}

// 測試一對一通話流程的信封轉發
func TestSignalUseCase_CallFlow(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	// 邀請
	f.signals.CallInvite(ctx, alice, domain.CallInvitePayload{TargetID: bob.ID, CallType: "video"})
	kind, data, ok := nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.CallInvite, kind)
	var inv domain.CallInviteOut
	assert.NoError(t, json.Unmarshal(data, &inv))
	assert.Equal(t, alice.ID, inv.SenderID)
	assert.Equal(t, "Alice", inv.SenderName)
	assert.Equal(t, "video", inv.CallType)

	// 接聽
	f.signals.CallEvent(ctx, bob, domain.CallAccept, domain.CallTargetPayload{TargetID: alice.ID})
	kind, data, ok = nextFrame(t, alice)
	assert.True(t, ok)
	assert.Equal(t, domain.CallAccept, kind)
	var ev domain.CallEventOut
	assert.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, bob.ID, ev.SenderID)

	// 通話金鑰素材
	f.signals.MediaHandshake(ctx, alice, domain.MediaHandshakePayload{TargetID: bob.ID, MediaPk: "mpk", MediaSecret: "msec"})
	kind, data, ok = nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.CallMediaHandshake, kind)
	var mh domain.MediaHandshakeOut
	assert.NoError(t, json.Unmarshal(data, &mh))
	assert.Equal(t, alice.ID, mh.SenderID)
	assert.Equal(t, "mpk", mh.MediaPk)
	assert.Equal(t, "msec", mh.MediaSecret)

	// SDP/ICE 信封
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	f.signals.RelaySignal(ctx, alice, domain.CallSignal, domain.SignalPayload{TargetID: bob.ID, Signal: sdp})
	kind, data, ok = nextFrame(t, bob)
	assert.True(t, ok)
	assert.Equal(t, domain.CallSignal, kind)
	var sig domain.SignalOut
	assert.NoError(t, json.Unmarshal(data, &sig))
	assert.Equal(t, alice.ID, sig.SenderID)
	assert.JSONEq(t, string(sdp), string(sig.Signal))

	// 掛斷
	f.signals.CallEvent(ctx, bob, domain.CallEnd, domain.CallTargetPayload{TargetID: alice.ID})
	kind, data, ok = nextFrame(t, alice)
	assert.True(t, ok)
	assert.Equal(t, domain.CallEnd, kind)
	assert.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, bob.ID, ev.SenderID)
}

// 測試語音網狀信令也走同一個單播信封
func TestSignalUseCase_VoiceSignal(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	ice := json.RawMessage(`{"candidate":"udp 1 ..."}`)
	f.signals.RelaySignal(ctx, bob, domain.VoiceSignal, domain.SignalPayload{TargetID: alice.ID, Signal: ice})

	kind, data, ok := nextFrame(t, alice)
	assert.True(t, ok)
	assert.Equal(t, domain.VoiceSignal, kind)
	var sig domain.SignalOut
	assert.NoError(t, json.Unmarshal(data, &sig))
	assert.Equal(t, bob.ID, sig.SenderID)
	noFrame(t, bob)
}

// 測試單播目標不在房內時一律丟棄
func TestSignalUseCase_UnknownTargetDrops(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	alice, bob := signalPair(t, f)

	f.signals.CallInvite(ctx, alice, domain.CallInvitePayload{TargetID: "s-nobody", CallType: "voice"})
	f.signals.CallEvent(ctx, alice, domain.CallReject, domain.CallTargetPayload{TargetID: "s-nobody"})
	f.signals.RelaySignal(ctx, alice, domain.VoiceSignal, domain.SignalPayload{TargetID: "s-nobody", Signal: json.RawMessage(`{}`)})
	f.signals.MediaHandshake(ctx, alice, domain.MediaHandshakePayload{TargetID: "s-nobody", MediaPk: "x", MediaSecret: "y"})

	noFrame(t, alice)
	noFrame(t, bob)
}
