package bwrap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_Namespace_Lower_All_ExcludesIndividualUnshareFlags(t *testing.T) {
	t.Parallel()

	ns := Namespace{Flags: FlagAll | FlagUser | FlagIPC | FlagPID}
	got := ns.lower()

	want := []string{"--unshare-all"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_UserAndUserTry_EmitsOnlyUser(t *testing.T) {
	t.Parallel()

	ns := Namespace{Flags: FlagUser | FlagUserTry}
	got := ns.lower()

	want := []string{"--unshare-user"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_CgroupsAndCgroupsTry_EmitsOnlyCgroups(t *testing.T) {
	t.Parallel()

	ns := Namespace{Flags: FlagCgroups | FlagCgroupsTry}
	got := ns.lower()

	want := []string{"--unshare-cgroup"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

// Test_Namespace_Lower_ScenarioE covers: {USER, USER_TRY, SHARE_NET, ALL}
// lowers to ["--unshare-all", "--share-net"] — ALL does not clear
// SHARE_NET, and ALL is emitted before SHARE_NET despite SHARE_NET
// occupying a lower bit.
func Test_Namespace_Lower_ScenarioE(t *testing.T) {
	t.Parallel()

	ns := Namespace{Flags: FlagUser | FlagUserTry | FlagShareNet | FlagAll}
	got := ns.lower()

	want := []string{"--unshare-all", "--share-net"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_UidGidImpliesUser(t *testing.T) {
	t.Parallel()

	uid := 1000
	ns := Namespace{UID: &uid}
	got := ns.lower()

	want := []string{"--unshare-user", "--uid", "1000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_HostnameImpliesUts(t *testing.T) {
	t.Parallel()

	hostname := "sandbox"
	ns := Namespace{Hostname: &hostname}
	got := ns.lower()

	want := []string{"--unshare-uts", "--hostname", "sandbox"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_GidBeforeUidBeforeHostnameBeforeChdir(t *testing.T) {
	t.Parallel()

	uid, gid := 1000, 1000
	hostname := "sandbox"
	cwd := "/work"

	ns := Namespace{UID: &uid, GID: &gid, Hostname: &hostname, Cwd: &cwd}
	got := ns.lower()

	want := []string{
		"--unshare-user",
		"--unshare-uts",
		"--gid", "1000",
		"--uid", "1000",
		"--hostname", "sandbox",
		"--chdir", "/work",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lower() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Namespace_Lower_Empty(t *testing.T) {
	t.Parallel()

	if got := (Namespace{}).lower(); len(got) != 0 {
		t.Errorf("lower() on zero-value Namespace = %v, want empty", got)
	}
}
