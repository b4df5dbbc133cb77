package restyutil

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DumpMessages writes the full request and response of every exchange made
// by the client to output, named by a counter. A nil output is a no-op.
func DumpMessages(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var idcounter uint64
	nextId := func() string {
		return strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
	}

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		output.Write(nextId(), formatHttpMessage(res))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		output.Write(nextId(), fmt.Sprintf("---- REQUEST ----\n\n%s %s\n\n---- ERROR ----\n\n%s", req.Method, req.URL, err))
	})
}
