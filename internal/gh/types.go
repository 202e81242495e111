package gh

// PR contains pull request information returned from the gh CLI
type PR struct {
	Number    int    // PR number
	Title     string // PR title
	URL       string // PR URL
	Author    string // author login
	IsDraft   bool   // draft status
	HeadSHA   string // head commit sha
	HeadOwner string // owner of the head repository
	HeadRef   string // head branch name
}
