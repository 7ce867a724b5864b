package main

import (
	"os"
	_ "time/tzdata"

	"github.com/shandysiswandi/bgvotp/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		os.Exit(1)
	}
}
