// Command ripsctl runs the claims and credit note operations on local files.
//
//	ripsctl reconcile --note nc.json --reference factura.json -o salida.json
//	ripsctl template export --note nc.json --reference factura.json -o plantilla.xlsx
//	ripsctl template apply --note nc.json --table plantilla.xlsx -o salida.json
//	ripsctl xml --note nc.json -o nc.xml
//	ripsctl embed --note nc.json --template attached.xml --family rips -o out.xml
//	ripsctl build --sections nota.yaml -o payload.json
//	ripsctl attached --template attached.xml --params params.yaml --note nc.json -o out.xml
//	ripsctl submit --payload payload.json --env pruebas
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
