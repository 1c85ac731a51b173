package pipeline

import "testing"

func TestBucketFor(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, bitstreamBufBucket},
		{1, bitstreamBufBucket},
		{bitstreamBufBucket, bitstreamBufBucket},
		{bitstreamBufBucket + 1, 2 * bitstreamBufBucket},
	}
	for _, c := range cases {
		if got := bucketFor(c.n); got != c.want {
			t.Errorf("bucketFor(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestBitstreamPoolGetAfterPutIsEmpty(t *testing.T) {
	p := newBitstreamPool()

	buf := p.get(100)
	if len(buf) != 0 {
		t.Fatalf("get() length = %d, want 0", len(buf))
	}
	if cap(buf) < 100 {
		t.Fatalf("get(100) capacity = %d, want >= 100", cap(buf))
	}
	buf = append(buf, make([]byte, 100)...)
	p.put(buf)

	buf2 := p.get(50)
	if len(buf2) != 0 {
		t.Fatalf("reused buffer length = %d, want 0", len(buf2))
	}
}
