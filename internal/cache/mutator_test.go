package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.messages = append(n.messages, message)
}

func seedRuns(s *Store, orgID string) (Key, Key) {
	k1 := Key{OrgID: orgID, Resource: ResourceRuns, Page: ""}
	k2 := Key{OrgID: orgID, Resource: ResourceRuns, Page: "2"}
	s.Set(k1, []string{"run_1", "run_2"})
	s.Set(k2, []string{"run_3"})
	return k1, k2
}

func TestMutator_SuccessInvalidatesCollection(t *testing.T) {
	s := NewStore()
	seedRuns(s, "org_1")
	m := NewMutator(s, nil, nil, nil)

	calls := 0
	err := m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Apply: func(k Key, cached interface{}) (interface{}, bool) {
			if k.Page != "" {
				return nil, false
			}
			runs := cached.([]string)
			return append([]string{"tmp_new"}, runs...), true
		},
		Call: func(ctx context.Context) error {
			calls++
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("network call ran %d times, want 1 (never retried)", calls)
	}
	if keys := s.Keys(Prefix{OrgID: "org_1", Resource: ResourceRuns}); len(keys) != 0 {
		t.Errorf("collection keys after success = %v, want none (invalidated)", keys)
	}
}

func TestMutator_ProvisionalEntityVisibleBeforeCall(t *testing.T) {
	s := NewStore()
	k1, k2 := seedRuns(s, "org_1")
	m := NewMutator(s, nil, nil, nil)

	var defaultPage, otherPage []string
	err := m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Apply: func(k Key, cached interface{}) (interface{}, bool) {
			if k.Page != "" {
				return nil, false
			}
			runs := cached.([]string)
			return append([]string{"tmp_new"}, runs...), true
		},
		Call: func(ctx context.Context) error {
			v1, _ := s.Get(k1)
			defaultPage = v1.([]string)
			v2, _ := s.Get(k2)
			otherPage = v2.([]string)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"tmp_new", "run_1", "run_2"}, defaultPage); diff != "" {
		t.Errorf("default page during network call mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"run_3"}, otherPage); diff != "" {
		t.Errorf("untouched page during network call mismatch (-want +got):\n%s", diff)
	}
}

func TestMutator_FailureRollsBackEveryPage(t *testing.T) {
	s := NewStore()
	k1, k2 := seedRuns(s, "org_1")
	notifier := &recordingNotifier{}
	m := NewMutator(s, notifier, nil, nil)

	wantErr := errors.New("write rejected")
	err := m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Apply: func(k Key, cached interface{}) (interface{}, bool) {
			runs := cached.([]string)
			return append([]string{"tmp_new"}, runs...), true
		},
		Call: func(ctx context.Context) error {
			return wantErr
		},
		FailureMessage: "Run could not be created.",
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}

	v1, _ := s.Get(k1)
	if diff := cmp.Diff([]string{"run_1", "run_2"}, v1); diff != "" {
		t.Errorf("default page after rollback mismatch (-want +got):\n%s", diff)
	}
	v2, _ := s.Get(k2)
	if diff := cmp.Diff([]string{"run_3"}, v2); diff != "" {
		t.Errorf("page 2 after rollback mismatch (-want +got):\n%s", diff)
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "Run could not be created." {
		t.Errorf("notifications = %v, want the failure message once", notifier.messages)
	}
}

func TestMutator_FailureDefaultMessage(t *testing.T) {
	s := NewStore()
	notifier := &recordingNotifier{}
	m := NewMutator(s, notifier, nil, nil)

	_ = m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Call: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})
	if len(notifier.messages) != 1 || notifier.messages[0] != "The change could not be saved. Please try again." {
		t.Errorf("notifications = %v, want the default failure message", notifier.messages)
	}
}

func TestMutator_NilApplyLeavesCacheUntouchedOnSuccessPath(t *testing.T) {
	s := NewStore()
	s.Set(Key{OrgID: "org_2", Resource: ResourceProspects}, "other")
	m := NewMutator(s, nil, nil, nil)

	err := m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Call: func(ctx context.Context) error {
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := s.Get(Key{OrgID: "org_2", Resource: ResourceProspects}); v != "other" {
		t.Error("mutation touched a key outside its prefix")
	}
}

func TestMutator_CancelsCompetingReads(t *testing.T) {
	s := NewStore()
	k := Key{OrgID: "org_1", Resource: ResourceRuns, Page: ""}
	started := make(chan struct{})
	fetchDone := make(chan error, 1)

	go func() {
		_, err := s.Fetch(context.Background(), k, func(ctx context.Context) (interface{}, error) {
			close(started)
			<-ctx.Done()
			return []string{"stale"}, ctx.Err()
		})
		fetchDone <- err
	}()
	<-started

	m := NewMutator(s, nil, nil, nil)
	err := m.Run(context.Background(), Mutation{
		Prefix: Prefix{OrgID: "org_1", Resource: ResourceRuns},
		Call: func(ctx context.Context) error {
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ferr := <-fetchDone; !errors.Is(ferr, ErrFetchCancelled) {
		t.Errorf("competing read error = %v, want ErrFetchCancelled", ferr)
	}
	if _, ok := s.Get(k); ok {
		t.Error("stale read response written back despite the mutation")
	}
}
