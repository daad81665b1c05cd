package client

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrIncompatible means the client and server disagree on the major version.
var ErrIncompatible = errors.New("incompatible server version")

// CheckCompatible rejects servers whose major version differs from the
// client's. Development builds and non-semver versions are always accepted.
func CheckCompatible(clientVersion, serverVersion string) error {
	cv, sv := canonical(clientVersion), canonical(serverVersion)
	if cv == "" || sv == "" {
		return nil
	}
	if semver.Major(cv) != semver.Major(sv) {
		return fmt.Errorf("%w: client %s, server %s", ErrIncompatible, cv, sv)
	}
	return nil
}

// canonical returns the semver form of v ("1.2" becomes "v1.2.0"), or ""
// when v is not a version.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
