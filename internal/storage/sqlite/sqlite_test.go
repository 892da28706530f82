package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "marup-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertTestGroup(t *testing.T, store *SQLiteStore, owner string) *models.Group {
	t.Helper()
	group := &models.Group{
		Name:               "Test Circle",
		ContributionAmount: 1000,
		MaxMembers:         3,
		DurationMonths:     3,
		CadenceDays:        30,
		OwnerID:            owner,
		Active:             true,
	}
	if err := store.InsertGroup(context.Background(), group); err != nil {
		t.Fatalf("InsertGroup failed: %v", err)
	}
	return group
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("InsertGroup generates ID and code", func(t *testing.T) {
		group := insertTestGroup(t, store, "owner-1")
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if len(group.GroupCode) != 6 {
			t.Errorf("Expected 6-char group code, got %q", group.GroupCode)
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetGroupByCode finds the group", func(t *testing.T) {
		group := insertTestGroup(t, store, "owner-2")
		found, err := store.GetGroupByCode(ctx, group.GroupCode)
		if err != nil {
			t.Fatalf("GetGroupByCode failed: %v", err)
		}
		if found.ID != group.ID {
			t.Errorf("Found group %s, want %s", found.ID, group.ID)
		}
	})

	t.Run("GetGroup unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nope")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteGroup cascades members and rounds", func(t *testing.T) {
		group := insertTestGroup(t, store, "owner-3")
		member := &models.Member{GroupID: group.ID, UserID: "u-1"}
		if err := store.InsertMember(ctx, member); err != nil {
			t.Fatalf("InsertMember failed: %v", err)
		}
		round := &models.Round{GroupID: group.ID, RoundNumber: 1, DueDate: 100}
		if err := store.InsertRound(ctx, round); err != nil {
			t.Fatalf("InsertRound failed: %v", err)
		}

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetMember(ctx, group.ID, "u-1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("member survived delete: %v", err)
		}
		if _, err := store.GetRound(ctx, round.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("round survived delete: %v", err)
		}
	})
}

func TestSQLiteStore_MemberUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	if err := store.InsertMember(ctx, &models.Member{GroupID: group.ID, UserID: "alice"}); err != nil {
		t.Fatalf("first InsertMember failed: %v", err)
	}
	err := store.InsertMember(ctx, &models.Member{GroupID: group.ID, UserID: "alice"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate member err = %v, want ErrConflict", err)
	}
}

func TestSQLiteStore_OneOpenRoundPerGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	if err := store.InsertRound(ctx, &models.Round{GroupID: group.ID, RoundNumber: 1, DueDate: 100}); err != nil {
		t.Fatalf("first InsertRound failed: %v", err)
	}
	err := store.InsertRound(ctx, &models.Round{GroupID: group.ID, RoundNumber: 2, DueDate: 200})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second open round err = %v, want ErrConflict", err)
	}
}

func TestSQLiteStore_CompleteRoundGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	round := &models.Round{GroupID: group.ID, RoundNumber: 1, DueDate: 100}
	if err := store.InsertRound(ctx, round); err != nil {
		t.Fatalf("InsertRound failed: %v", err)
	}

	if err := store.CompleteRound(ctx, round.ID, "alice", 3000); err != nil {
		t.Fatalf("first CompleteRound failed: %v", err)
	}
	err := store.CompleteRound(ctx, round.ID, "bob", 3000)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second CompleteRound err = %v, want ErrConflict", err)
	}

	got, err := store.GetRound(ctx, round.ID)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if !got.Completed || got.WinnerUserID != "alice" || got.TotalAmount != 3000 {
		t.Errorf("round after complete = %+v, want completed with winner alice and total 3000", got)
	}
}

func TestSQLiteStore_ContributionAndPayoutUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")
	round := &models.Round{GroupID: group.ID, RoundNumber: 1, DueDate: 100}
	if err := store.InsertRound(ctx, round); err != nil {
		t.Fatalf("InsertRound failed: %v", err)
	}

	c := &models.Contribution{GroupID: group.ID, RoundID: round.ID, UserID: "alice", Amount: 1000}
	if err := store.InsertContribution(ctx, c); err != nil {
		t.Fatalf("InsertContribution failed: %v", err)
	}
	err := store.InsertContribution(ctx, &models.Contribution{GroupID: group.ID, RoundID: round.ID, UserID: "alice", Amount: 1000})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate contribution err = %v, want ErrConflict", err)
	}

	p := &models.Payout{GroupID: group.ID, RoundID: round.ID, UserID: "alice", Amount: 1000}
	if err := store.InsertPayout(ctx, p); err != nil {
		t.Fatalf("InsertPayout failed: %v", err)
	}
	err = store.InsertPayout(ctx, &models.Payout{GroupID: group.ID, RoundID: round.ID, UserID: "bob", Amount: 1000})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate payout err = %v, want ErrConflict", err)
	}
}

func TestSQLiteStore_JoinRequestLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	req := &models.JoinRequest{GroupID: group.ID, UserID: "alice"}
	if err := store.InsertJoinRequest(ctx, req); err != nil {
		t.Fatalf("InsertJoinRequest failed: %v", err)
	}
	if req.Status != models.JoinRequestPending {
		t.Errorf("status = %s, want pending", req.Status)
	}

	// A second live request is rejected.
	err := store.InsertJoinRequest(ctx, &models.JoinRequest{GroupID: group.ID, UserID: "alice"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate request err = %v, want ErrConflict", err)
	}

	// Decide it; the decision is terminal.
	if err := store.UpdateJoinRequestStatus(ctx, req.ID, models.JoinRequestApproved); err != nil {
		t.Fatalf("UpdateJoinRequestStatus failed: %v", err)
	}
	err = store.UpdateJoinRequestStatus(ctx, req.ID, models.JoinRequestRejected)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second decision err = %v, want ErrConflict", err)
	}

	// After a rejection, a fresh request is allowed.
	req2 := &models.JoinRequest{GroupID: group.ID, UserID: "bob"}
	if err := store.InsertJoinRequest(ctx, req2); err != nil {
		t.Fatalf("InsertJoinRequest failed: %v", err)
	}
	if err := store.UpdateJoinRequestStatus(ctx, req2.ID, models.JoinRequestRejected); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if err := store.InsertJoinRequest(ctx, &models.JoinRequest{GroupID: group.ID, UserID: "bob"}); err != nil {
		t.Errorf("request after rejection failed: %v", err)
	}
}

func TestSQLiteStore_NotificationPayloadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n := &models.Notification{
		UserID:  "owner",
		Kind:    models.KindRoundResolved,
		Title:   "Round resolved",
		Content: "Alice won round 2",
		Payload: models.RoundResolvedPayload{
			GroupID:      "g-1",
			RoundID:      "r-2",
			RoundNumber:  2,
			WinnerUserID: "alice",
			Amount:       3000,
		},
	}
	if err := store.InsertNotification(ctx, n); err != nil {
		t.Fatalf("InsertNotification failed: %v", err)
	}

	list, err := store.ListNotifications(ctx, "owner", 10)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	payload, ok := list[0].Payload.(*models.RoundResolvedPayload)
	if !ok {
		t.Fatalf("payload type = %T, want *RoundResolvedPayload", list[0].Payload)
	}
	if payload.WinnerUserID != "alice" || payload.Amount != 3000 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestSQLiteStore_InTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	sentinel := errors.New("boom")
	err := store.InTx(ctx, func(tx storage.Ledger) error {
		if err := tx.InsertMember(ctx, &models.Member{GroupID: group.ID, UserID: "alice"}); err != nil {
			return err
		}
		if err := tx.InsertRound(ctx, &models.Round{GroupID: group.ID, RoundNumber: 1, DueDate: 100}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("InTx err = %v, want sentinel", err)
	}

	if _, err := store.GetMember(ctx, group.ID, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("member survived rollback: %v", err)
	}
	if _, err := store.GetCurrentRound(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("round survived rollback: %v", err)
	}
}

func TestSQLiteStore_MonthlyNotificationDedupe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := insertTestGroup(t, store, "owner")

	sent, err := store.HasMonthlyNotification(ctx, group.ID, 4, 2026)
	if err != nil {
		t.Fatalf("HasMonthlyNotification failed: %v", err)
	}
	if sent {
		t.Fatal("expected no notification yet")
	}

	if err := store.InsertMonthlyNotification(ctx, &models.MonthlyNotification{GroupID: group.ID, Month: 4, Year: 2026}); err != nil {
		t.Fatalf("InsertMonthlyNotification failed: %v", err)
	}
	sent, err = store.HasMonthlyNotification(ctx, group.ID, 4, 2026)
	if err != nil {
		t.Fatalf("HasMonthlyNotification failed: %v", err)
	}
	if !sent {
		t.Error("expected notification recorded")
	}

	err = store.InsertMonthlyNotification(ctx, &models.MonthlyNotification{GroupID: group.ID, Month: 4, Year: 2026})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate monthly notification err = %v, want ErrConflict", err)
	}
}
