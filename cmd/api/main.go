package main

import (
	"go.uber.org/fx"

	"github.com/campus-canteen/canteen/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
