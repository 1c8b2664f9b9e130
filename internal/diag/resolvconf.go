package diag

import (
	"bufio"
	"bytes"
	"net"
	"strings"
)

// ParseNameservers extracts the nameserver addresses from resolv.conf
// content. Comments (# or ;) and malformed entries are skipped.
func ParseNameservers(data []byte) []string {
	var servers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if ip := net.ParseIP(fields[1]); ip != nil {
			servers = append(servers, fields[1])
		}
	}
	return servers
}

// RenderResolvConf builds resolv.conf content listing the given
// nameservers, with a header identifying the writer.
func RenderResolvConf(nameservers []string, writtenBy string) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Written by " + writtenBy + "\n")
	for _, ns := range nameservers {
		buf.WriteString("nameserver " + ns + "\n")
	}
	return buf.Bytes()
}
