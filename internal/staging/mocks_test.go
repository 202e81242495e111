package staging

import (
	"github.com/stretchr/testify/mock"

	"github.com/prestokit/stagecraft/internal/gh"
)

// MockGithubClient is a testify mock of the GithubClient interface
type MockGithubClient struct {
	mock.Mock
}

func (m *MockGithubClient) ListOpenPRs(labels []string, limit int) ([]gh.PR, int, error) {
	args := m.Called(labels, limit)
	if prs := args.Get(0); prs != nil {
		return prs.([]gh.PR), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockGithubClient) ViewPR(number int) (*gh.PR, error) {
	args := m.Called(number)
	if pr := args.Get(0); pr != nil {
		return pr.(*gh.PR), args.Error(1)
	}
	return nil, args.Error(1)
}
