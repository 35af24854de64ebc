package auth

// RemindResult is the outcome of a password reset request.
type RemindResult int

const (
	// RemindUnknownUser means no user exists for the submitted email.
	RemindUnknownUser RemindResult = iota
	// RemindSent means a reset email was sent.
	RemindSent
	// RemindThrottled means a live reset token already exists and no
	// new email was sent.
	RemindThrottled
)

func (r RemindResult) String() string {
	switch r {
	case RemindUnknownUser:
		return "unknown user"
	case RemindSent:
		return "reminder sent"
	case RemindThrottled:
		return "throttled"
	}
	return "unknown remind result"
}

// ResetResult is the outcome of a password reset submission.
//
// ResetInvalidPassword is produced by the form boundary when the new
// password fails to parse or does not equal its confirmation, the
// service itself only ever receives valid passwords.
type ResetResult int

const (
	ResetSuccess ResetResult = iota
	ResetInvalidToken
	ResetInvalidUser
	ResetInvalidPassword
)

func (r ResetResult) String() string {
	switch r {
	case ResetSuccess:
		return "success"
	case ResetInvalidToken:
		return "invalid token"
	case ResetInvalidUser:
		return "invalid user"
	case ResetInvalidPassword:
		return "invalid password"
	}
	return "unknown reset result"
}
