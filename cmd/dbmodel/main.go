package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kaguya154/dbmodel"
	"github.com/Kaguya154/dbmodel/drivers/mysql"
	"github.com/Kaguya154/dbmodel/drivers/postgresql"
	"github.com/Kaguya154/dbmodel/drivers/sqlite"
)

func init() {
	// 注册驱动
	must(dbmodel.RegisterDriver(sqlite.DriverName, sqlite.GetDriver()))
	must(dbmodel.RegisterDriver(mysql.DriverName, mysql.GetDriver()))
	must(dbmodel.RegisterDriver(postgresql.DriverName, postgresql.GetDriver()))
	must(dbmodel.RegisterDriver(postgresql.PgxDriverName, postgresql.GetPgxDriver()))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
