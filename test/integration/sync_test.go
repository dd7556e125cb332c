package integration

import (
	"encoding/json"
	"testing"
	"time"
)

var (
	t1 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
)

type syncSummary struct {
	Removed    int      `json:"removed"`
	Created    int      `json:"created"`
	Downloaded int      `json:"downloaded"`
	Unchanged  int      `json:"unchanged"`
	Skipped    []string `json:"skipped"`
}

func decodeSummary(t *testing.T, res result) syncSummary {
	t.Helper()
	var s syncSummary
	if err := json.Unmarshal([]byte(res.stdout), &s); err != nil {
		t.Fatalf("invalid sync output %q: %v", res.stdout, err)
	}
	return s
}

func TestSync_FullCycle(t *testing.T) {
	e := newEnv(t, `black_list = [".Trash"]`)

	e.server.WriteFile("Photos/2024/cat.jpg", "meow", t1)
	e.server.WriteFile("Photos/My Notes.txt", "remember the milk", t1)
	e.server.WriteFile("Photos/.Trash/old.jpg", "gone", t1)
	e.server.WriteFile("Elsewhere/secret.txt", "not mirrored", t1)

	first := decodeSummary(t, e.mustRun("--json", "sync", "Photos"))
	if first.Downloaded != 2 || first.Created != 1 {
		t.Errorf("first sync = %+v, want 2 downloads and 1 folder", first)
	}
	if len(first.Skipped) != 2 {
		t.Errorf("expected .Trash and its file to be skipped, got %v", first.Skipped)
	}
	if got := e.readLocal("2024/cat.jpg"); got != "meow" {
		t.Errorf("cat.jpg = %q", got)
	}
	if got := e.readLocal("My Notes.txt"); got != "remember the milk" {
		t.Errorf("My Notes.txt = %q", got)
	}
	e.assertMissing(".Trash")
	e.assertMissing("secret.txt")

	// Change, remove and add on the server.
	e.server.WriteFile("Photos/2024/cat.jpg", "purr", t2)
	e.server.Remove("Photos/My Notes.txt")
	e.server.WriteFile("Photos/new/deep/dog.jpg", "woof", t1)

	second := decodeSummary(t, e.mustRun("--json", "sync", "Photos"))
	if second.Removed != 1 || second.Created != 2 || second.Downloaded != 2 {
		t.Errorf("second sync = %+v, want 1 removal, 2 folders, 2 downloads", second)
	}
	if got := e.readLocal("2024/cat.jpg"); got != "purr" {
		t.Errorf("cat.jpg after update = %q", got)
	}
	if got := e.readLocal("new/deep/dog.jpg"); got != "woof" {
		t.Errorf("dog.jpg = %q", got)
	}
	e.assertMissing("My Notes.txt")

	third := decodeSummary(t, e.mustRun("--json", "sync", "Photos"))
	if third.Removed+third.Created+third.Downloaded != 0 {
		t.Errorf("expected an idle third sync, got %+v", third)
	}
}

func TestSync_FolderRemovedOnServer(t *testing.T) {
	e := newEnv(t, "")
	e.server.WriteFile("Photos/album/a.jpg", "a", t1)
	e.server.WriteFile("Photos/album/b.jpg", "b", t1)
	e.mustRun("sync", "Photos")

	e.server.Remove("Photos/album")
	summary := decodeSummary(t, e.mustRun("--json", "sync", "Photos"))
	if summary.Removed != 3 {
		t.Errorf("expected the folder and both files to be removed, got %+v", summary)
	}
	e.assertMissing("album")
}

func TestSync_RetriesTransientFailures(t *testing.T) {
	e := newEnv(t, "")
	e.server.WriteFile("Photos/a.txt", "a", t1)
	e.server.FailNext(2)

	e.mustRun("sync", "Photos")
	if got := e.readLocal("a.txt"); got != "a" {
		t.Errorf("a.txt = %q", got)
	}
}

func TestSync_RemoteErrors(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		e := newEnv(t, `password = "wrong"`)
		if res := e.run("sync", "Photos"); res.code != 8 {
			t.Errorf("exit code = %d, want 8 (stderr %q)", res.code, res.stderr)
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		e := newEnv(t, "")
		if res := e.run("sync", "Missing"); res.code != 8 {
			t.Errorf("exit code = %d, want 8 (stderr %q)", res.code, res.stderr)
		}
	})

	t.Run("server keeps failing", func(t *testing.T) {
		e := newEnv(t, "")
		e.server.WriteFile("Photos/a.txt", "a", t1)
		e.server.FailNext(10)
		if res := e.run("sync", "Photos"); res.code != 8 {
			t.Errorf("exit code = %d, want 8 (stderr %q)", res.code, res.stderr)
		}
	})
}

func TestClear_AfterSync(t *testing.T) {
	e := newEnv(t, "")
	e.server.WriteFile("Photos/a.txt", "a", t1)
	e.mustRun("sync", "Photos")

	e.mustRun("clear", e.outDir)
	e.assertMissing("a.txt")
	e.assertMissing(".sync")

	// A cleared directory is no longer a sync directory.
	if res := e.run("clear", e.outDir); res.code != 2 {
		t.Errorf("second clear exit code = %d, want 2", res.code)
	}
}
