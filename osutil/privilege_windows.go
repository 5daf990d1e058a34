package osutil

// DropPrivileges is a noop on Windows.
func DropPrivileges(userName, groupName string) error {
	return nil
}

func PrivilegeReport() string {
	return "n/a"
}
