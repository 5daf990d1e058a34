//go:build !windows
// +build !windows

package osutil

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"
)

const (
	me = "osutil.DropPrivileges: "
)

// DropPrivileges changes the process to the nominated group and user, normally once the
// listen sockets are open. There is no chroot as zonefiles and the configuration are
// re-read at run time.
//
// Names are converted to ids first while /etc/passwd (or the moral equivalent) is
// readable. Supplementary groups are removed as part of setting the group, which must
// precede setuid as that is irreversible. Either name may be empty to skip that step.
func DropPrivileges(userName, groupName string) error {
	uid := -1
	gid := -1
	if len(userName) > 0 {
		u, err := user.Lookup(userName)
		if err != nil {
			return fmt.Errorf(me+"user lookup: %w", err)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return fmt.Errorf(me+"UID %s: %w", u.Uid, err)
		}
	}

	if len(groupName) > 0 {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return fmt.Errorf(me+"group lookup: %w", err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf(me+"GID %s: %w", g.Gid, err)
		}
	}

	if gid != -1 {
		if err := syscall.Setgroups([]int{}); err != nil {
			return fmt.Errorf(me+"clear group list: %w", err)
		}
		if err := syscall.Setgid(gid); err != nil {
			return fmt.Errorf(me+"setgid %d/%s: %w", gid, groupName, err)
		}
	}

	if uid != -1 {
		if err := syscall.Setuid(uid); err != nil {
			return fmt.Errorf(me+"setuid %d/%s: %w", uid, userName, err)
		}
	}

	return nil
}

// PrivilegeReport returns the uid, gid and groups of the process for logging after
// DropPrivileges.
func PrivilegeReport() string {
	gList, _ := os.Getgroups()
	gStr := make([]string, 0, len(gList))
	for _, g := range gList {
		gStr = append(gStr, strconv.Itoa(g))
	}

	return fmt.Sprintf("uid=%d gid=%d (%s)", os.Getuid(), os.Getgid(), strings.Join(gStr, ","))
}
