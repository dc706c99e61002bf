package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

type fakeExchanger struct {
	url  string
	cred domain.Credential
	err  error
	code string
}

func (e *fakeExchanger) AuthorizeURL() string { return e.url }

func (e *fakeExchanger) ExchangeToken(_ context.Context, code string) (domain.Credential, error) {
	e.code = code
	if e.err != nil {
		return domain.Credential{}, e.err
	}
	return e.cred, nil
}

func TestHandleCallbackPersistsCredential(t *testing.T) {
	issued := time.Now()
	ex := &fakeExchanger{cred: domain.Credential{Token: "tok-1", IssuedAt: issued}}
	tokens := &fakeTokens{err: domain.ErrNoCredential}
	svc := NewAuthService(ex, tokens, testNotifier(&captureSender{}), testLogger())

	if err := svc.HandleCallback(context.Background(), "auth-code"); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if ex.code != "auth-code" {
		t.Errorf("exchanged code = %q", ex.code)
	}
	if tokens.cred.Token != "tok-1" || !tokens.cred.IssuedAt.Equal(issued) {
		t.Errorf("saved = %+v", tokens.cred)
	}
}

func TestHandleCallbackMissingCode(t *testing.T) {
	svc := NewAuthService(&fakeExchanger{}, &fakeTokens{}, testNotifier(&captureSender{}), testLogger())
	if err := svc.HandleCallback(context.Background(), ""); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandleCallbackExchangeFailure(t *testing.T) {
	ex := &fakeExchanger{err: errors.New("invalid code")}
	tokens := &fakeTokens{err: domain.ErrNoCredential}
	svc := NewAuthService(ex, tokens, testNotifier(&captureSender{}), testLogger())

	if err := svc.HandleCallback(context.Background(), "bad"); err == nil {
		t.Fatal("expected error")
	}
	if tokens.cred.Token != "" {
		t.Errorf("credential saved on failure: %+v", tokens.cred)
	}
}
