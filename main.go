package main

import "github.com/zeinabtofaili/FTP-Server/cmd"

func main() {
	cmd.Execute()
}
