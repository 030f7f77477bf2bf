package main

// migrate runs a goose command and its arguments, e.g. "up-to 2".
func (cli *commandLine) migrate(args []string) error {
	return cli.migrator(args[0], args[1:]...)
}
