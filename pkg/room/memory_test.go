package room

import (
	"context"
	"testing"
)

// TestMemoryManager 测试进程内房间管理
func TestMemoryManager(t *testing.T) {
	ctx := context.Background()

	t.Run("JoinThenLeaveDeletesRoom", func(t *testing.T) {
		m := NewMemoryManager().(*memoryManager)

		if err := m.Join(ctx, "r1", "alice"); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		if err := m.Leave(ctx, "r1", "alice"); err != nil {
			t.Fatalf("leave failed: %v", err)
		}

		if _, ok := m.rooms["r1"]; ok {
			t.Error("expected empty room to be deleted")
		}
		members, _ := m.Members(ctx, "r1")
		if len(members) != 0 {
			t.Errorf("expected no members, got %v", members)
		}
	})

	t.Run("JoinIdempotent", func(t *testing.T) {
		m := NewMemoryManager()

		_ = m.Join(ctx, "r1", "alice")
		_ = m.Join(ctx, "r1", "alice")

		members, _ := m.Members(ctx, "r1")
		if len(members) != 1 {
			t.Errorf("expected 1 member, got %v", members)
		}
	})

	t.Run("LeaveNonMemberNoop", func(t *testing.T) {
		m := NewMemoryManager()

		_ = m.Join(ctx, "r1", "alice")
		if err := m.Leave(ctx, "r1", "bob"); err != nil {
			t.Fatalf("leave of non-member should be a no-op, got %v", err)
		}

		ok, _ := m.IsMember(ctx, "r1", "alice")
		if !ok {
			t.Error("alice should still be a member")
		}
	})

	t.Run("IsMember", func(t *testing.T) {
		m := NewMemoryManager()

		_ = m.Join(ctx, "r1", "alice")

		if ok, _ := m.IsMember(ctx, "r1", "alice"); !ok {
			t.Error("expected alice to be a member")
		}
		if ok, _ := m.IsMember(ctx, "r1", "bob"); ok {
			t.Error("expected bob to not be a member")
		}
		if ok, _ := m.IsMember(ctx, "missing", "alice"); ok {
			t.Error("expected membership check on a missing room to be false")
		}
	})

	t.Run("LeaveAll", func(t *testing.T) {
		m := NewMemoryManager().(*memoryManager)

		_ = m.Join(ctx, "r1", "alice")
		_ = m.Join(ctx, "r2", "alice")
		_ = m.Join(ctx, "r2", "bob")

		if err := m.LeaveAll(ctx, "alice"); err != nil {
			t.Fatalf("leave all failed: %v", err)
		}

		if _, ok := m.rooms["r1"]; ok {
			t.Error("expected r1 to be deleted after its only member left")
		}
		if ok, _ := m.IsMember(ctx, "r2", "alice"); ok {
			t.Error("expected alice to be removed from r2")
		}
		if ok, _ := m.IsMember(ctx, "r2", "bob"); !ok {
			t.Error("expected bob to still be in r2")
		}
	})
}
