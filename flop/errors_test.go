// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"errors"
	"testing"
)

func TestWrapErrClassification(t *testing.T) {
	cause := errors.New("Invalid reference path.")
	err := wrapErr(ErrInput, cause)

	if !errors.Is(err, ErrInput) {
		t.Error("wrapErr(): errors.Is(err, ErrInput)\nhave false\nwant true")
	}
	if errors.Is(err, ErrDevice) {
		t.Error("wrapErr(): errors.Is(err, ErrDevice)\nhave true\nwant false")
	}
	if got := errors.Unwrap(err); got != cause {
		t.Errorf("wrapErr(): errors.Unwrap(err)\nhave %v\nwant %v", got, cause)
	}
	want := "flop: invalid input: Invalid reference path."
	if err.Error() != want {
		t.Errorf("wrapErr(): Error()\nhave %q\nwant %q", err.Error(), want)
	}
}

func TestWrapErrNil(t *testing.T) {
	if err := wrapErr(ErrInput, nil); err != nil {
		t.Errorf("wrapErr(class, nil)\nhave %v\nwant nil", err)
	}
}
