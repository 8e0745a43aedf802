package orderupdate

// loginRequest is the individual-user login payload, sent as LoginReq.
type loginRequest struct {
	MsgCode  int    `json:"MsgCode"`
	ClientID string `json:"ClientId"`
	Token    string `json:"Token"`
}

// individualAuthMessage authenticates as the account owner.
type individualAuthMessage struct {
	LoginReq loginRequest `json:"LoginReq"`
	UserType string       `json:"UserType"`
}

// partnerLoginRequest is the partner-user login payload: no Token field,
// ClientId carries the partner id instead.
type partnerLoginRequest struct {
	MsgCode  int    `json:"MsgCode"`
	ClientID string `json:"ClientId"`
}

// partnerAuthMessage authenticates as a partner platform, receiving order
// updates for every user connected through it.
type partnerAuthMessage struct {
	LoginReq partnerLoginRequest `json:"LoginReq"`
	UserType string              `json:"UserType"`
	Secret   string              `json:"Secret"`
}

const loginMsgCode = 42

func newIndividualAuth(clientID, accessToken string) individualAuthMessage {
	return individualAuthMessage{
		LoginReq: loginRequest{MsgCode: loginMsgCode, ClientID: clientID, Token: accessToken},
		UserType: "SELF",
	}
}

func newPartnerAuth(partnerID, partnerSecret string) partnerAuthMessage {
	return partnerAuthMessage{
		LoginReq: partnerLoginRequest{MsgCode: loginMsgCode, ClientID: partnerID},
		UserType: "PARTNER",
		Secret:   partnerSecret,
	}
}
