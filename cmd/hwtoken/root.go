package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/niclabs/hwtoken/core"
	"github.com/niclabs/hwtoken/objects"
	"github.com/niclabs/hwtoken/token"
)

// cli holds the state shared by the subcommands of one invocation.
type cli struct {
	configFile string
	app        *token.Application
}

// newRootCmd returns the command tree and the state it opens. The caller
// closes the state once the command returned.
func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "hwtoken",
		Short:         "Manage hardware feature objects of a PKCS#11 token",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./config, $HOME/.hwtoken/config or /etc/hwtoken/config)")

	root.AddCommand(c.newCreateCmd())
	root.AddCommand(c.newListCmd())
	root.AddCommand(c.newShowCmd())
	root.AddCommand(c.newSetCmd())
	root.AddCommand(c.newDestroyCmd())
	return root, c
}

func (c *cli) open() error {
	config, err := core.GetConfig(c.configFile)
	if err != nil {
		return err
	}
	c.app, err = token.NewApplication(config)
	return c.describe(err)
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *cli) newCreateCmd() *cobra.Command {
	var value, label string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a hardware feature object",
	}
	build := func(kind objects.Kind) *cobra.Command {
		cmd := &cobra.Command{
			Use:   kind.String(),
			Short: fmt.Sprintf("Create a %s object", kind),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				attrs := []*pkcs11.Attribute{
					{Type: pkcs11.CKA_CLASS, Value: objects.ULongAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_HW_FEATURE).Value},
					{Type: pkcs11.CKA_HW_FEATURE_TYPE, Value: objects.ULongAttribute(pkcs11.CKA_HW_FEATURE_TYPE, kind.FeatureType()).Value},
				}
				if cmd.Flags().Changed("label") {
					attrs = append(attrs, pkcs11.NewAttribute(pkcs11.CKA_LABEL, label))
				}
				if cmd.Flags().Changed("value") {
					raw, err := hex.DecodeString(value)
					if err != nil {
						return fmt.Errorf("value: %v", err)
					}
					attrs = append(attrs, &pkcs11.Attribute{Type: pkcs11.CKA_VALUE, Value: raw})
				}
				object, err := c.app.Token.CreateObject(attrs)
				if err != nil {
					return c.describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", object.Handle)
				return nil
			},
		}
		cmd.Flags().StringVar(&label, "label", "", "object label")
		if kind == objects.KindClock {
			cmd.Flags().StringVar(&value, "value", "", "initial CKA_VALUE, hex encoded")
		}
		return cmd
	}
	create.AddCommand(build(objects.KindClock), build(objects.KindCounter))
	return create
}

func (c *cli) newListCmd() *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the hardware feature objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var query []*pkcs11.Attribute
			if kindName != "" {
				kind, err := objects.ParseKind(kindName)
				if err != nil {
					return err
				}
				query = append(query, &pkcs11.Attribute{
					Type:  pkcs11.CKA_HW_FEATURE_TYPE,
					Value: objects.ULongAttribute(pkcs11.CKA_HW_FEATURE_TYPE, kind.FeatureType()).Value,
				})
			}
			for _, handle := range c.app.Token.FindObjects(query) {
				object, err := c.app.Token.GetObject(handle)
				if err != nil {
					return c.describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", object.Handle, object.Kind, object.UniqueID, object.Label())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "only list objects of this kind (clock or counter)")
	return cmd
}

func (c *cli) newShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show HANDLE",
		Short: "Show the attributes of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			object, err := c.app.Token.GetObject(handle)
			if err != nil {
				return c.describe(err)
			}
			// Ask the token for the value so live clocks report the time.
			types := make([]uint, 0, object.Template.Len())
			for _, attr := range object.Template.Attributes() {
				types = append(types, attr.Type)
			}
			attrs, err := c.app.Token.GetAttributeValue(handle, types)
			if err != nil {
				return c.describe(err)
			}
			return render(cmd.OutOrStdout(), output, object, objects.FromPKCS11(attrs))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text or yaml)")
	return cmd
}

func (c *cli) newSetCmd() *cobra.Command {
	var value, label string
	cmd := &cobra.Command{
		Use:   "set HANDLE",
		Short: "Change the value or the label of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			var attrs []*pkcs11.Attribute
			if cmd.Flags().Changed("value") {
				raw, err := hex.DecodeString(value)
				if err != nil {
					return fmt.Errorf("value: %v", err)
				}
				attrs = append(attrs, &pkcs11.Attribute{Type: pkcs11.CKA_VALUE, Value: raw})
			}
			if cmd.Flags().Changed("label") {
				attrs = append(attrs, pkcs11.NewAttribute(pkcs11.CKA_LABEL, label))
			}
			if len(attrs) == 0 {
				return errors.New("nothing to set: use --value or --label")
			}
			return c.describe(c.app.Token.SetAttributeValue(handle, attrs))
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "new CKA_VALUE, hex encoded")
	cmd.Flags().StringVar(&label, "label", "", "new label")
	return cmd
}

func (c *cli) newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy HANDLE",
		Short: "Destroy an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			return c.describe(c.app.Token.DestroyObject(handle))
		},
	}
}

func parseHandle(arg string) (uint, error) {
	handle, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q", arg)
	}
	return uint(handle), nil
}

// describe prefixes token errors with the name of their return value.
func (c *cli) describe(err error) error {
	if err == nil {
		return nil
	}
	var tcb *objects.TcbError
	if !errors.As(err, &tcb) {
		return err
	}
	log := zerolog.Nop()
	if c.app != nil {
		log = c.app.Log
	}
	return fmt.Errorf("%s: %v", objects.RVName(objects.ErrorToRV(log, err)), err)
}
