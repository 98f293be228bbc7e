package main

import (
	"github.com/airenas/meetscribe/internal/app/pending"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	pending.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
                     __                   _ __       
   ____ ___  ___  __/ /_______________(_) /_  ___ 
  / __ '__ \/ _ \/ _ \/ __/ ___/ ___/ ___/ / __ \/ _ \
 / / / / / /  __/  __/ /_(__  ) /__/ /  / / /_/ /  __/
/_/ /_/ /_/\___/\___/\__/____/\___/_/  /_/_.___/\___/ 
   process pending v: %s

%s
________________________________________________________                                                 

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/airenas/meetscribe"))
}
