// taylor-server exposes gotaylor derivative tools over HTTP and as a
// one-shot CLI.
//
// Usage:
//
//	taylor-server serve --port 8080
//	echo '{"tool":"derivative","params":{...}}' | taylor-server eval
package main

func main() {
	Execute()
}
