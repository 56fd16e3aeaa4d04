package blob

import "testing"

func TestKey(t *testing.T) {
	cases := []struct {
		folder, id, filename, want string
	}{
		{"bills", "abc-123", "receipt.png", "bills/abc-123.png"},
		{"bills", "abc-123", "scan.v2.JPG", "bills/abc-123.JPG"},
		{"bills", "abc-123", "noext", "bills/abc-123"},
		{"receipts", "x", "a.pdf", "receipts/x.pdf"},
	}
	for _, tc := range cases {
		if got := Key(tc.folder, tc.id, tc.filename); got != tc.want {
			t.Errorf("Key(%q, %q, %q) = %q, want %q", tc.folder, tc.id, tc.filename, got, tc.want)
		}
	}
}
