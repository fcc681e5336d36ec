package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageSent(t *testing.T) {
	data := []byte(`{
		"id": null,
		"type": "MSG_SEND",
		"payload": {"message": {
			"id": "m1", "from": "bob", "to": "alice", "text": "hi",
			"datetime": 1700000000000,
			"status": {"isDelivered": true, "isReaded": false, "isEdited": false}
		}}
	}`)

	ev, err := Decode(data)
	require.NoError(t, err)

	sent, ok := ev.(MessageSent)
	require.True(t, ok)
	assert.Equal(t, "", sent.RequestID)
	assert.Equal(t, "m1", sent.Message.ID)
	assert.Equal(t, "bob", sent.Message.From)
	assert.True(t, sent.Message.Status.Delivered)
	assert.False(t, sent.Message.Status.Read)
}

func TestDecodeError(t *testing.T) {
	data := []byte(`{"id":"req-1","type":"ERROR","payload":{"error":"incorrect password"}}`)

	ev, err := Decode(data)
	require.NoError(t, err)

	e, ok := ev.(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "incorrect password", e.Reason)
}

func TestDecodeHistoryBatchKeepsRequestID(t *testing.T) {
	data := []byte(`{"id":"bob_01ARZ","type":"MSG_FROM_USER","payload":{"messages":[]}}`)

	ev, err := Decode(data)
	require.NoError(t, err)

	batch, ok := ev.(HistoryBatch)
	require.True(t, ok)
	assert.Equal(t, "bob_01ARZ", batch.RequestID)
	assert.Empty(t, batch.Messages)
}

func TestDecodeUnknownTypeFallsBackToRosterBatch(t *testing.T) {
	data := []byte(`{"id":null,"type":"SOMETHING_NEW","payload":{"users":[{"login":"bob","isLogined":true}]}}`)

	ev, err := Decode(data)
	require.NoError(t, err)

	batch, ok := ev.(RosterBatch)
	require.True(t, ok)
	assert.Equal(t, "SOMETHING_NEW", batch.RawType)
	require.Len(t, batch.Users, 1)
	assert.Equal(t, "bob", batch.Users[0].Login)
	assert.True(t, batch.Users[0].Online)
}

func TestDecodeRosterBatchWithoutPayload(t *testing.T) {
	ev, err := Decode([]byte(`{"id":null,"type":"NOISE","payload":null}`))
	require.NoError(t, err)

	batch, ok := ev.(RosterBatch)
	require.True(t, ok)
	assert.Empty(t, batch.Users)
}

func TestDecodeRejectsNonEnvelopes(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"id":"x","type":"MSG_SEND","payload":null}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"id":"x","type":"MSG_READ"}`))
	assert.Error(t, err)
}

func TestDecodeNullPayloadOnTypedEnvelopesErrors(t *testing.T) {
	for _, typ := range []string{
		TypeError, TypeUserLogin, TypeExternalLogin, TypeExternalLogout,
		TypeMsgSend, TypeMsgFromUser, TypeMsgRead, TypeMsgDelete, TypeMsgEdit,
	} {
		t.Run(typ, func(t *testing.T) {
			_, err := Decode([]byte(`{"id":null,"type":"` + typ + `","payload":null}`))
			assert.Error(t, err)
		})
	}
}

func TestRequestShapes(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
		want string
	}{
		{
			"login",
			LoginRequest("r1", Credentials{Login: "alice", Password: "pw"}),
			`{"id":"r1","type":"USER_LOGIN","payload":{"user":{"login":"alice","password":"pw"}}}`,
		},
		{
			"active users",
			ActiveUsersRequest("r2"),
			`{"id":"r2","type":"USER_ACTIVE","payload":null}`,
		},
		{
			"send",
			SendRequest("r3", "bob", "hi"),
			`{"id":"r3","type":"MSG_SEND","payload":{"message":{"to":"bob","text":"hi"}}}`,
		},
		{
			"history",
			HistoryRequest("bob_r4", "bob"),
			`{"id":"bob_r4","type":"MSG_FROM_USER","payload":{"user":{"login":"bob"}}}`,
		},
		{
			"read",
			ReadRequest("r5", "m1"),
			`{"id":"r5","type":"MSG_READ","payload":{"message":{"id":"m1"}}}`,
		},
		{
			"edit",
			EditRequest("r6", "m1", "fixed"),
			`{"id":"r6","type":"MSG_EDIT","payload":{"message":{"id":"m1","text":"fixed"}}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.env)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}
