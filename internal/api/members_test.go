package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lynqio/client/internal/cache"
	"lynqio/client/internal/tenant"
)

func TestMemberService_InviteFailureRemovesPendingEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "gw-key", &staticTokenSource{token: "tok"}, time.Second, nil)
	store := cache.NewStore()
	svc := NewMemberService(client, store, cache.NewMutator(store, nil, nil, nil))

	key := cache.Key{OrgID: "org_1", Resource: cache.ResourceMembers}
	store.Set(key, []Member{{ID: "mem_1", Email: "owner@acme.test", Role: tenant.RoleOwner}})

	err := svc.Invite(context.Background(), "org_1", "new@acme.test", tenant.RoleMember)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Invite error = %v, want ErrRateLimited", err)
	}

	v, _ := store.Get(key)
	members := v.([]Member)
	if len(members) != 1 || members[0].ID != "mem_1" {
		t.Errorf("members after rollback = %+v, want only mem_1", members)
	}
}

func TestMemberService_InvitePendingVisibleDuringCall(t *testing.T) {
	store := cache.NewStore()
	key := cache.Key{OrgID: "org_1", Resource: cache.ResourceMembers}
	var duringCall []Member
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := store.Get(key); ok {
			duringCall = v.([]Member)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "gw-key", &staticTokenSource{token: "tok"}, time.Second, nil)
	svc := NewMemberService(client, store, cache.NewMutator(store, nil, nil, nil))

	store.Set(key, []Member{})
	if err := svc.Invite(context.Background(), "org_1", "new@acme.test", tenant.RoleMember); err != nil {
		t.Fatalf("Invite: %v", err)
	}

	if len(duringCall) != 1 {
		t.Fatalf("members during the round-trip = %d, want 1", len(duringCall))
	}
	if !duringCall[0].Pending || !cache.IsTempID(duringCall[0].ID) {
		t.Errorf("provisional member = %+v, want pending with a temp id", duringCall[0])
	}
}

func TestUsageService_CurrentCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(Usage{OrgID: "org_1", SeatsUsed: 3, SeatsTotal: 10, RunsUsed: 1, RunsQuota: 5})
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "gw-key", &staticTokenSource{token: "tok"}, time.Second, nil)
	store := cache.NewStore()
	svc := NewUsageService(client, store)

	u, err := svc.Current(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if u.SeatsUsed != 3 || u.RunsQuota != 5 {
		t.Errorf("usage = %+v, want seats 3/10 runs 1/5", u)
	}
	if _, err := svc.Current(context.Background(), "org_1"); err != nil {
		t.Fatalf("second Current: %v", err)
	}
	if hits != 1 {
		t.Errorf("backend hit %d times, want 1", hits)
	}
}
