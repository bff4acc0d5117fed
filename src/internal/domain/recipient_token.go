package domain

import (
	"strconv"
	"strings"
)

type RecipientTokenKind int

const (
	ByAddress RecipientTokenKind = iota
	ByIdentifier
)

// RecipientToken is a caller supplied recipient, classified once at the boundary.
type RecipientToken struct {
	Kind RecipientTokenKind
	Raw  string
	UID  int64
	// Overflow is set when an all-digit token does not fit an identifier.
	Overflow bool
}

func ParseRecipientToken(raw string) RecipientToken {
	token := strings.TrimSpace(raw)
	if token == "" || !digitsOnly(token) {
		return RecipientToken{Kind: ByAddress, Raw: token}
	}

	uid, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return RecipientToken{Kind: ByIdentifier, Raw: token, Overflow: true}
	}
	return RecipientToken{Kind: ByIdentifier, Raw: token, UID: uid}
}

func (t RecipientToken) String() string {
	return t.Raw
}

func digitsOnly(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
