package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/snipdex/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, "sync")
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, "sync")
	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected db.Error with op PING, got %v", err)
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := keyPrefix("sync"); got != "{sync}:" {
		t.Errorf("keyPrefix(sync) = %q", got)
	}
	if got := keyPrefix(""); got != "{snipdex}:" {
		t.Errorf("keyPrefix(\"\") = %q", got)
	}
}

// --- kv.go tests ---

func TestGet_PresentAndMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("MGET", "{sync}:snippets", "{sync}:other")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString(`[{"id":"a"}]`),
			mock.RedisNil(),
		)))

	s := NewStoreForTest(c, "sync")
	got, err := s.Get(context.Background(), "snippets", "other")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got["snippets"]) != `[{"id":"a"}]` {
		t.Errorf("unexpected value: %q", got["snippets"])
	}
	if _, ok := got["other"]; ok {
		t.Error("nil reply must be omitted from the result")
	}
}

func TestGet_NoKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c, "sync")
	got, err := s.Get(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("Get() = %v, %v", got, err)
	}
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("MGET", "{sync}:snippets")).
		Return(mock.ErrorResult(errors.New("connection reset")))

	s := NewStoreForTest(c, "sync")
	_, err := s.Get(context.Background(), "snippets")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet {
		t.Fatalf("expected db.Error with op GET, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if len(cmd) != 5 || cmd[0] != "MSET" {
				return false
			}
			pairs := map[string]string{cmd[1]: cmd[2], cmd[3]: cmd[4]}
			return pairs["{cache}:a"] == "1" && pairs["{cache}:b"] == "2"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, "cache")
	err := s.Set(context.Background(), map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "MSET" })).
		Return(mock.Result(mock.RedisError("OOM command not allowed")))

	s := NewStoreForTest(c, "sync")
	err := s.Set(context.Background(), map[string][]byte{"snippets": []byte("[]")})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSet {
		t.Fatalf("expected db.Error with op SET, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "{sync}:snippets")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, "sync")
	if err := s.Remove(context.Background(), "snippets"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
