package protocol

// Outbound request builders. Every request carries a client-minted id;
// the server echoes it back on the matching response.

func LoginRequest(id string, user Credentials) Envelope {
	return Envelope{ID: id, Type: TypeUserLogin, Payload: userCredPayload{User: user}}
}

func LogoutRequest(id string, user Credentials) Envelope {
	return Envelope{ID: id, Type: TypeUserLogout, Payload: userCredPayload{User: user}}
}

func ActiveUsersRequest(id string) Envelope {
	return Envelope{ID: id, Type: TypeUserActive}
}

func InactiveUsersRequest(id string) Envelope {
	return Envelope{ID: id, Type: TypeUserInactive}
}

func SendRequest(id, to, text string) Envelope {
	return Envelope{ID: id, Type: TypeMsgSend, Payload: messageOutPayload{
		Message: messageOut{To: to, Text: text},
	}}
}

func HistoryRequest(id, login string) Envelope {
	return Envelope{ID: id, Type: TypeMsgFromUser, Payload: userLoginPayload{
		User: userLogin{Login: login},
	}}
}

func ReadRequest(id, messageID string) Envelope {
	return Envelope{ID: id, Type: TypeMsgRead, Payload: messageRefPayload{
		Message: messageRef{ID: messageID},
	}}
}

func DeleteRequest(id, messageID string) Envelope {
	return Envelope{ID: id, Type: TypeMsgDelete, Payload: messageRefPayload{
		Message: messageRef{ID: messageID},
	}}
}

func EditRequest(id, messageID, text string) Envelope {
	return Envelope{ID: id, Type: TypeMsgEdit, Payload: messageRefPayload{
		Message: messageRef{ID: messageID, Text: text},
	}}
}

type userCredPayload struct {
	User Credentials `json:"user"`
}

type userLogin struct {
	Login string `json:"login"`
}

type userLoginPayload struct {
	User userLogin `json:"user"`
}

type messageOut struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type messageOutPayload struct {
	Message messageOut `json:"message"`
}

type messageRef struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

type messageRefPayload struct {
	Message messageRef `json:"message"`
}
