package bwrap

import "fmt"

// NamespaceFlags is a bitset over the bwrap unshare/namespace flags that take
// no argument.
type NamespaceFlags uint32

const (
	FlagUser NamespaceFlags = 1 << iota
	FlagUserTry
	FlagIPC
	FlagPID
	FlagNet
	FlagUTS
	FlagCgroups
	FlagCgroupsTry
	FlagShareNet
	FlagAll
	FlagDisableUserNS
	FlagAssertDisableUserNS
	FlagDieWithParent
	FlagNewSession
)

// flagOrder fixes the iteration/emission order of the bitset so lowering is
// deterministic and testable. This is declaration order, not bit-value
// order: ALL is emitted before SHARE_NET even though SHARE_NET occupies a
// lower bit, matching the source flag set's own iteration order (see
// testable property E in SPEC_FULL.md).
var flagOrder = []struct {
	flag NamespaceFlags
	arg  string
}{
	{FlagUser, "--unshare-user"},
	{FlagUserTry, "--unshare-user-try"},
	{FlagIPC, "--unshare-ipc"},
	{FlagPID, "--unshare-pid"},
	{FlagNet, "--unshare-net"},
	{FlagUTS, "--unshare-uts"},
	{FlagCgroups, "--unshare-cgroup"},
	{FlagCgroupsTry, "--unshare-cgroup-try"},
	{FlagAll, "--unshare-all"},
	{FlagDisableUserNS, "--disable-userns"},
	{FlagAssertDisableUserNS, "--assert-disable-userns"},
	{FlagShareNet, "--share-net"},
	{FlagDieWithParent, "--die-with-parent"},
	{FlagNewSession, "--new-session"},
}

// Namespace describes the namespace-unsharing flags plus uid/gid/hostname/cwd
// remapping for a sandbox.
type Namespace struct {
	Flags NamespaceFlags

	UID      *int
	GID      *int
	Hostname *string
	Cwd      *string
}

// sanitize applies the spec's fixed invariants. It is called at lowering
// time, not at mutation time, so intermediate states (e.g. both USER and
// USER_TRY set) are allowed while building a Namespace.
func (n Namespace) sanitize() NamespaceFlags {
	flags := n.Flags

	if n.UID != nil || n.GID != nil {
		flags |= FlagUser
	}

	if n.Hostname != nil {
		flags |= FlagUTS
	}

	if flags&FlagAll != 0 {
		flags &^= FlagUser | FlagUserTry | FlagIPC | FlagPID | FlagNet | FlagUTS | FlagCgroups | FlagCgroupsTry
	}

	if flags&FlagUser != 0 {
		flags &^= FlagUserTry
	}

	if flags&FlagCgroups != 0 {
		flags &^= FlagCgroupsTry
	}

	return flags
}

// lower produces the namespace argv tokens: sanitized flags in fixed order,
// then --gid, --uid, --hostname, --chdir when present.
func (n Namespace) lower() []string {
	flags := n.sanitize()

	args := make([]string, 0, len(flagOrder)+8)

	for _, f := range flagOrder {
		if flags&f.flag != 0 {
			args = append(args, f.arg)
		}
	}

	if n.GID != nil {
		args = append(args, "--gid", fmt.Sprintf("%d", *n.GID))
	}

	if n.UID != nil {
		args = append(args, "--uid", fmt.Sprintf("%d", *n.UID))
	}

	if n.Hostname != nil {
		args = append(args, "--hostname", *n.Hostname)
	}

	if n.Cwd != nil {
		args = append(args, "--chdir", *n.Cwd)
	}

	return args
}
