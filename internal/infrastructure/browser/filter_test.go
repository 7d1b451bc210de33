package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"

	"ThreadHarvester/internal/domain"
)

func TestResourceFilterDefaults(t *testing.T) {
	t.Parallel()

	f := NewResourceFilter(nil)

	blocked := []proto.NetworkResourceType{
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeStylesheet,
		proto.NetworkResourceTypeScript,
		proto.NetworkResourceTypeMedia,
	}
	for _, rt := range blocked {
		if !f.Blocks(string(rt)) {
			t.Fatalf("expected %s to be blocked", rt)
		}
	}

	allowed := []proto.NetworkResourceType{
		proto.NetworkResourceTypeDocument,
		proto.NetworkResourceTypeXHR,
		proto.NetworkResourceTypeFetch,
	}
	for _, rt := range allowed {
		if f.Blocks(string(rt)) {
			t.Fatalf("expected %s to pass through", rt)
		}
	}
}

func TestResourceFilterCustom(t *testing.T) {
	t.Parallel()

	f := NewResourceFilter([]string{" Image ", "", "XHR"})
	if !f.Blocks("image") || !f.Blocks("XHR") {
		t.Fatalf("expected configured categories to be blocked")
	}
	if f.Blocks("script") {
		t.Fatalf("script was not configured and must pass")
	}

	none := NewResourceFilter([]string{})
	if none.Blocks("image") {
		t.Fatalf("empty category list must block nothing")
	}
}

func TestConnectWithoutEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewConnector("  ", nil, nil).Connect(context.Background())
	if !errors.Is(err, domain.ErrNoConnectionURL) {
		t.Fatalf("expected ErrNoConnectionURL, got %v", err)
	}
}

func TestResolveControlURLKeepsWebsocket(t *testing.T) {
	t.Parallel()

	const ws = "ws://127.0.0.1:9222/devtools/browser/abc"
	got, err := resolveControlURL(ws)
	if err != nil {
		t.Fatalf("resolveControlURL: %v", err)
	}
	if got != ws {
		t.Fatalf("expected %s, got %s", ws, got)
	}
}

type recordedAction struct {
	failed    []proto.NetworkErrorReason
	continued int
}

func (a *recordedAction) Fail(reason proto.NetworkErrorReason) {
	a.failed = append(a.failed, reason)
}

func (a *recordedAction) Continue() {
	a.continued++
}

func TestResourceFilterRoute(t *testing.T) {
	t.Parallel()

	f := NewResourceFilter(nil)
	cases := []struct {
		resourceType proto.NetworkResourceType
		blocked      bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeScript, true},
		{proto.NetworkResourceTypeDocument, false},
		{proto.NetworkResourceTypeXHR, false},
	}

	for _, tc := range cases {
		action := &recordedAction{}
		f.route(string(tc.resourceType), action)

		if tc.blocked {
			if len(action.failed) != 1 || action.failed[0] != proto.NetworkErrorReasonBlockedByClient || action.continued != 0 {
				t.Fatalf("%s: expected a single BlockedByClient failure, got %+v", tc.resourceType, action)
			}
			continue
		}
		if action.continued != 1 || len(action.failed) != 0 {
			t.Fatalf("%s: expected the request to continue, got %+v", tc.resourceType, action)
		}
	}
}
