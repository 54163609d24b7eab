// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"reflect"
	"testing"

	"github.com/juju/errors"
)

func TestAvailableTransports(t *testing.T) {
	if got, want := AvailableTransports(), []string{TransportGRPC, TransportJSON}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !HasTransport(DefaultTransport) {
		t.Errorf("default transport %q not registered", DefaultTransport)
	}
	if HasTransport("zap") {
		t.Error("unexpected transport zap")
	}
}

func TestDialUnknownTransport(t *testing.T) {
	dir := writeTestCerts(t)
	_, err := Dial(context.Background(), DefaultHost, WithTransport("zap"), WithRootCertFile(testCertPath(dir)))
	if !errors.Is(err, errors.NotSupported) {
		t.Errorf("got %v, want NotSupported", err)
	}
}

func TestDialRequiresTLS(t *testing.T) {
	for _, transport := range AvailableTransports() {
		_, err := Dial(context.Background(), DefaultHost, WithTransport(transport))
		if !errors.Is(err, errors.NotValid) {
			t.Errorf("%s: got %v, want NotValid", transport, err)
		}
	}
}
