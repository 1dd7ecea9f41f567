package echostub

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/auth"
)

// demoPassword unlocks every seeded account.
const demoPassword = "maji1234"

type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`

	passwordHash []byte
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.passwordHash = hash
	return nil
}

func (u User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(pwd))
}

// userStore holds the seeded demo accounts, keyed by username.
type userStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func newUserStore() *userStore {
	st := &userStore{users: make(map[string]User)}
	st.seed()
	return st
}

func (st *userStore) seed() {
	seeds := []User{
		{ID: "usr-tembo", Username: "tembo", Email: "tembo@kozi.app", Roles: []string{auth.RoleTutor}},
		{ID: "usr-amina", Username: "amina", Email: "amina@kozi.app", Roles: []string{auth.RoleStudent}},
		{ID: "usr-baraka", Username: "baraka", Email: "baraka@kozi.app", Roles: []string{auth.RoleAdminPrincipal}},
	}
	for _, usr := range seeds {
		// bcrypt only fails on absurd input; the seeds are fixed
		_ = usr.SetPassword(demoPassword)
		st.users[usr.Username] = usr
	}
}

func (st *userStore) getByUsername(uname string) (User, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	usr, ok := st.users[core.CleanString(uname, true /* lower */)]
	return usr, ok
}
