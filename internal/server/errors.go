package server

import (
	"errors"
	"net/http"
)

type kinded interface {
	Kind() string
}

var statusByKind = map[string]int{
	"validation":   http.StatusBadRequest,
	"signature":    http.StatusUnauthorized,
	"unauthorized": http.StatusUnauthorized,
	"upstream":     http.StatusInternalServerError,
}

func httpStatus(err error) int {
	var k kinded
	if errors.As(err, &k) {
		if st, ok := statusByKind[k.Kind()]; ok {
			return st
		}
	}
	return http.StatusInternalServerError
}
