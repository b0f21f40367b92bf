package generate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type UserDraft struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

var firstNames = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Radia", "Ken"}
var lastNames = []string{"Fisher", "Okafor", "Lindgren", "Tanaka", "Moreau", "Silva", "Novak", "Hart"}

// Users fabricates n learner drafts. Usernames carry a uuid fragment so
// repeated runs against the same tenant never collide.
func Users(n int) []UserDraft {
	out := make([]UserDraft, 0, n)
	for i := 0; i < n; i++ {
		tag := strings.Split(uuid.NewString(), "-")[0]
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames))%len(lastNames)]
		out = append(out, UserDraft{
			Username:  fmt.Sprintf("%s.%s.%s", strings.ToLower(first), strings.ToLower(last), tag),
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s.%s@example.test", strings.ToLower(first), strings.ToLower(last), tag),
			Password:  uuid.NewString(),
		})
	}
	return out
}
