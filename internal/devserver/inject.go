package devserver

import (
	"bytes"
	"net/http"
	"strings"
)

const maxInjectSize = 512 * 1024

// injectScript buffers HTML pages and inserts tag before </body>. Responses that
// are not HTML, or grow past maxInjectSize, are passed through untouched.
func injectScript(next http.Handler, tag string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		isHTMLPage := p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".htm")
		if !isHTMLPage || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, statusCode: http.StatusOK, tag: tag}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	tag           string
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		contentType := l.Header().Get("Content-Type")
		isHTML := contentType == "" || strings.Contains(contentType, "text/html")
		if !isHTML || l.statusCode != http.StatusOK {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
			return l.ResponseWriter.Write(data)
		}
		l.buffer = make([]byte, 0, 64*1024)
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}
	if len(l.buffer)+len(data) > maxInjectSize {
		l.passthrough = true
		l.Header().Del("Content-Length")
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
		}
		return l.ResponseWriter.Write(data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}
	body := l.buffer
	if i := bytes.LastIndex(bytes.ToLower(body), []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(l.tag))
		out = append(out, body[:i]...)
		out = append(out, l.tag...)
		body = append(out, body[i:]...)
	}
	l.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(body)
}
