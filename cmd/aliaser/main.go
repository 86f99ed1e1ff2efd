package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Hussein-Mazeh/aliaser/auth"
	"github.com/Hussein-Mazeh/aliaser/internal/identity"
	"github.com/Hussein-Mazeh/aliaser/internal/service"
	"github.com/Hussein-Mazeh/aliaser/internal/vault"
	"github.com/Hussein-Mazeh/aliaser/internal/yubikey"
)

const cliVersion = "0.1.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "version":
		fmt.Println(cliVersion)
	case "init":
		err = runInit(args)
	case "add":
		err = runAdd(args)
	case "list":
		err = runList(args)
	case "get":
		err = runGet(args)
	case "update":
		err = runUpdate(args)
	case "delete":
		err = runDelete(args)
	case "export":
		err = runExport(args)
	case "import":
		err = runImport(args)
	case "change-master":
		err = runChangeMaster(args)
	default:
		printUsage()
		os.Exit(1)
	}

	handleError(err)
}

func handleError(err error) {
	if err == nil {
		return
	}

	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, color.RedString("✗ ")+uerr.Error())
		os.Exit(1)
	}

	switch {
	case errors.Is(err, vault.ErrAuthentication):
		fmt.Fprintln(os.Stderr, color.RedString("✗ ")+"invalid master password")
	case errors.Is(err, vault.ErrHardwareUnavailable):
		fmt.Fprintln(os.Stderr, color.RedString("✗ ")+"YubiKey required but not found; plug it in and retry")
	case errors.Is(err, vault.ErrIntegrity):
		fmt.Fprintln(os.Stderr, color.RedString("✗ ")+"vault data failed integrity verification (corruption or wrong key)")
	default:
		fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(1)
}

type cliFlags struct {
	dir     string
	verbose bool
}

func parseCommon(name string, args []string) (cliFlags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cf cliFlags
	fs.StringVar(&cf.dir, "dir", "", "vault directory (default ~/.aliaser)")
	fs.BoolVar(&cf.verbose, "verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return cf, fs, userError{msg: "invalid arguments"}
	}

	if cf.dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cf, fs, fmt.Errorf("resolve home directory: %w", err)
		}
		cf.dir = filepath.Join(home, ".aliaser")
	}
	return cf, fs, nil
}

func newService(cf cliFlags) *service.Service {
	level := zerolog.Disabled
	if cf.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return service.New(cf.dir, yubikey.New(), log)
}

func runInit(args []string) error {
	cf, fs, err := parseCommon("init", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	svc := newService(cf)
	defer svc.Close()

	if svc.IsInitialized() {
		return userError{msg: "vault already initialized"}
	}

	fmt.Println(color.CyanString("Initializing new vault..."))

	enableToken := false
	if yubikey.New().Present() {
		fmt.Println(color.GreenString("YubiKey detected"))
		enableToken, err = promptYesNo("Enable YubiKey authentication? (y/n): ")
		if err != nil {
			return err
		}
	} else {
		fmt.Println(color.New(color.Faint).Sprint("No YubiKey detected (optional)"))
	}

	master, err := promptNewPassword("Enter master password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(master)

	if enableToken {
		fmt.Println(color.CyanString("Please touch your YubiKey..."))
	}

	sp := newSpinner("deriving vault key")
	err = svc.Initialize(master, enableToken)
	sp.Stop()
	if err != nil {
		return err
	}

	fmt.Println(color.GreenString("✓") + " vault initialized")
	if enableToken {
		fmt.Println(color.YellowString("⚠ YubiKey required: you need both your password AND the key to unlock"))
	}
	fmt.Println(color.YellowString("⚠ your master password cannot be recovered; do not lose it"))
	return nil
}

func runAdd(args []string) error {
	cf, fs, err := parseCommon("add", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	fmt.Println(color.CyanString("Add New Identity"))

	svcName, err := promptLine("Service name: ")
	if err != nil {
		return err
	}
	if svcName == "" {
		return userError{msg: "service name is required"}
	}

	username, err := promptLine("Username: ")
	if err != nil {
		return err
	}

	password, err := promptPassword("Password (leave empty to generate): ")
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	pw := string(password)
	if pw == "" {
		pw, err = auth.GeneratePassword(20)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("Generated password: ") + pw)
	}

	email, err := promptLine("Email (optional): ")
	if err != nil {
		return err
	}
	alias, err := promptLine("Alias (optional): ")
	if err != nil {
		return err
	}
	notes, err := promptLine("Notes (optional): ")
	if err != nil {
		return err
	}

	id := identity.New(svcName, identity.Credentials{
		Username: username,
		Password: pw,
		Email:    email,
		Alias:    alias,
	})
	id.Notes = notes

	if err := svc.AddIdentity(id); err != nil {
		return err
	}

	fmt.Println(color.GreenString("✓") + " identity stored for " + color.YellowString(svcName))
	return nil
}

func runList(args []string) error {
	cf, fs, err := parseCommon("list", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	services, err := svc.ListServices()
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Println("vault is empty")
		return nil
	}
	for _, name := range services {
		fmt.Println("  " + name)
	}
	return nil
}

func runGet(args []string) error {
	cf, fs, err := parseCommon("get", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: aliaser get <service>"}
	}
	svcName := fs.Arg(0)

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	id, err := svc.GetIdentity(svcName)
	if err != nil {
		return userError{msg: err.Error()}
	}

	printIdentity(id)
	return nil
}

func runUpdate(args []string) error {
	cf, fs, err := parseCommon("update", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: aliaser update <service>"}
	}
	svcName := fs.Arg(0)

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	id, err := svc.GetIdentity(svcName)
	if err != nil {
		return userError{msg: err.Error()}
	}

	fmt.Println(color.CyanString("Update Identity") + " (leave a field empty to keep the current value)")

	if v, err := promptLine("Username [" + id.Credentials.Username + "]: "); err != nil {
		return err
	} else if v != "" {
		id.Credentials.Username = v
	}

	pw, err := promptPassword("Password (empty to keep): ")
	if err != nil {
		return err
	}
	defer zeroBytes(pw)
	if len(pw) != 0 {
		id.Credentials.Password = string(pw)
	}

	if v, err := promptLine("Email [" + id.Credentials.Email + "]: "); err != nil {
		return err
	} else if v != "" {
		id.Credentials.Email = v
	}
	if v, err := promptLine("Notes: "); err != nil {
		return err
	} else if v != "" {
		id.Notes = v
	}

	if err := svc.UpdateIdentity(svcName, id); err != nil {
		return err
	}

	fmt.Println(color.GreenString("✓") + " identity updated for " + color.YellowString(svcName))
	return nil
}

func runDelete(args []string) error {
	cf, fs, err := parseCommon("delete", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: aliaser delete <service>"}
	}
	svcName := fs.Arg(0)

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	ok, err := promptYesNo("Delete identity for " + svcName + "? (y/n): ")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("aborted")
		return nil
	}

	if err := svc.DeleteIdentity(svcName); err != nil {
		return userError{msg: err.Error()}
	}

	fmt.Println(color.GreenString("✓") + " identity deleted for " + color.YellowString(svcName))
	return nil
}

func runExport(args []string) error {
	cf, fs, err := parseCommon("export", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: aliaser export <path>"}
	}
	path := fs.Arg(0)

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	if err := svc.Export(path); err != nil {
		return err
	}
	fmt.Println(color.GreenString("✓") + " encrypted vault exported to " + color.YellowString(path))
	return nil
}

func runImport(args []string) error {
	cf, fs, err := parseCommon("import", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return userError{msg: "usage: aliaser import <path>"}
	}
	path := fs.Arg(0)

	svc := newService(cf)
	defer svc.Close()

	if err := unlockVault(svc); err != nil {
		return err
	}

	ok, err := promptYesNo("Importing replaces the current vault contents. Continue? (y/n): ")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("aborted")
		return nil
	}

	if err := svc.Import(path); err != nil {
		return err
	}
	fmt.Println(color.GreenString("✓") + " vault imported from " + color.YellowString(path))
	return nil
}

func runChangeMaster(args []string) error {
	cf, fs, err := parseCommon("change-master", args)
	if err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	svc := newService(cf)
	defer svc.Close()

	if !svc.IsInitialized() {
		return userError{msg: "vault not initialized; run 'aliaser init' first"}
	}

	oldMaster, err := promptPassword("Current master password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(oldMaster)

	newMaster, err := promptNewPassword("New master password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(newMaster)

	if tokenNeeded, err := svc.HardwareEnabled(); err == nil && tokenNeeded {
		fmt.Println(color.CyanString("Please touch your YubiKey..."))
	}

	sp := newSpinner("re-keying vault")
	err = svc.RotateMaster(oldMaster, newMaster)
	sp.Stop()
	if err != nil {
		return err
	}

	fmt.Println(color.GreenString("✓") + " master password changed and vault re-keyed")
	return nil
}

// unlockVault prompts for the master password and unlocks the session,
// warning about the token first when the vault needs it.
func unlockVault(svc *service.Service) error {
	if !svc.IsInitialized() {
		return userError{msg: "vault not initialized; run 'aliaser init' first"}
	}

	master, err := promptPassword("Master password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(master)

	if tokenNeeded, err := svc.HardwareEnabled(); err == nil && tokenNeeded {
		fmt.Println(color.CyanString("Please touch your YubiKey..."))
	}

	sp := newSpinner("unlocking vault")
	err = svc.Unlock(master)
	sp.Stop()
	return err
}

func printIdentity(id identity.Identity) {
	bold := color.New(color.Bold)
	bold.Println(id.Service)
	fmt.Printf("  username: %s\n", id.Credentials.Username)
	fmt.Printf("  password: %s\n", id.Credentials.Password)
	if id.Credentials.Email != "" {
		fmt.Printf("  email:    %s\n", id.Credentials.Email)
	}
	if id.Credentials.Alias != "" {
		fmt.Printf("  alias:    %s\n", id.Credentials.Alias)
	}
	if id.Notes != "" {
		fmt.Printf("  notes:    %s\n", id.Notes)
	}
	fmt.Printf("  updated:  %s\n", id.UpdatedAt.Format(time.RFC3339))
}

func newSpinner(suffix string) *spinner.Spinner {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + suffix
	sp.Start()
	return sp
}

// promptNewPassword reads and confirms a fresh master password, enforcing
// the auth policy and strength score.
func promptNewPassword(prompt string) ([]byte, error) {
	pw, err := promptPassword(prompt)
	if err != nil {
		return nil, err
	}

	confirm, err := promptPassword("Confirm master password: ")
	if err != nil {
		zeroBytes(pw)
		return nil, err
	}
	defer zeroBytes(confirm)

	if !bytes.Equal(pw, confirm) {
		zeroBytes(pw)
		return nil, userError{msg: "passwords do not match"}
	}

	if err := validateNewMaster(pw); err != nil {
		zeroBytes(pw)
		return nil, userError{msg: err.Error()}
	}
	return pw, nil
}

// validateNewMaster applies the full policy stack to a candidate master
// password: character policy, zxcvbn score, and the HIBP breach lookup.
// The breach check fails open so an offline machine can still set up.
func validateNewMaster(pw []byte) error {
	opts := auth.DefaultValidateOptions()
	opts.EnableHIBP = true
	return auth.ValidateMasterPasswordAdvanced(context.Background(), string(pw), opts)
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// stdin is shared across prompts so buffered input is never dropped
// between consecutive reads.
var stdin = bufio.NewReader(os.Stdin)

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptYesNo(prompt string) (bool, error) {
	answer, err := promptLine(prompt)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: aliaser <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  init                 initialize a new vault")
	fmt.Fprintln(os.Stderr, "  add                  add a new identity")
	fmt.Fprintln(os.Stderr, "  list                 list stored services")
	fmt.Fprintln(os.Stderr, "  get <service>        show an identity")
	fmt.Fprintln(os.Stderr, "  update <service>     update an identity")
	fmt.Fprintln(os.Stderr, "  delete <service>     delete an identity")
	fmt.Fprintln(os.Stderr, "  export <path>        export the encrypted vault")
	fmt.Fprintln(os.Stderr, "  import <path>        import an encrypted vault")
	fmt.Fprintln(os.Stderr, "  change-master        change the master password")
	fmt.Fprintln(os.Stderr, "  version")
	fmt.Fprintln(os.Stderr, "Flags: --dir <vault-dir> --verbose")
}
