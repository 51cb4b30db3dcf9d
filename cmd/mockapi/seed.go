package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
	"github.com/AurLemon/course-android-mockapi/internal/utils"
)

type seedStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User, password string, cost int) error
}

// seedAccounts are created with utils.DefaultPassword when missing.
var seedAccounts = []model.User{
	{Username: "admin", TrueName: "管理员", Role: model.RoleAdmin},
	{Username: "test", TrueName: "测试用户", Role: model.RoleUser},
}

// seedUsers creates the built-in accounts that do not exist yet. Existing
// accounts are left untouched, so it is safe to run repeatedly.
func seedUsers(ctx context.Context, users seedStore, cost int, out io.Writer) error {
	for _, acc := range seedAccounts {
		_, err := users.FindByUsername(ctx, acc.Username)
		if err == nil {
			fmt.Fprintf(out, "%s exists, skipped\n", acc.Username)
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("seed %s: %w", acc.Username, err)
		}
		u := acc
		if err := users.Create(ctx, &u, utils.DefaultPassword, cost); err != nil {
			return fmt.Errorf("seed %s: %w", acc.Username, err)
		}
		fmt.Fprintf(out, "%s created (uid %d)\n", u.Username, u.UID)
	}
	return nil
}
