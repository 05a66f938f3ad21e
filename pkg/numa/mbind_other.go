//go:build !linux

package numa

func bindToNode(b []byte, node int) error {
	return nil
}

func adviseHugePages(b []byte) error {
	return nil
}
